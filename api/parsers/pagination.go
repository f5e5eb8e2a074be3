package parsers

// Page holds the order and size of a page of results
type Page struct {
	Order *string `form:"order,default=ASC" binding:"omitempty,oneof=ASC DESC"`
	Limit *uint   `form:"limit,default=20" binding:"omitempty,min=1,max=2049"`
}

// Pagination holds the params of the listings whose items have a sequential
// id (round ids, bid sequence numbers).  FromItem is the first id returned,
// included.
type Pagination struct {
	FromItem *uint `form:"fromItem"`

	Page
}
