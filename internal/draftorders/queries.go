package draftorders

const (
	completeMutation = `mutation draftOrderComplete($id: ID!) {
  draftOrderComplete(id: $id) {
    draftOrder {
      id
      name
      status
      completedAt
      order { id name }
    }
    userErrors { field message }
  }
}`

	deleteMutation = `mutation draftOrderDelete($input: DraftOrderDeleteInput!) {
  draftOrderDelete(input: $input) {
    deletedId
    userErrors { field message }
  }
}`

	listQuery = `query draftOrders($first: Int!, $query: String!) {
  draftOrders(first: $first, sortKey: UPDATED_AT, reverse: true, query: $query) {
    edges {
      node {
        id
        name
        status
        createdAt
        updatedAt
        invoiceUrl
        totalPriceSet { shopMoney { amount currencyCode } }
      }
    }
  }
}`

	statusQuery = `query draftOrderStatus($id: ID!) {
  draftOrder(id: $id) { id status }
}`
)

// PageSize is the fixed number of draft orders a list returns.
const PageSize = 20
