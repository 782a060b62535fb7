package structs

// ImportResult is the wire contract of POST /bulk-import
type ImportResult struct {
	OK                 bool     `json:"ok"`
	Logs               []string `json:"logs"`
	CollectionsCreated int      `json:"collections_created"`
	CollectionsUpdated int      `json:"collections_updated"`
	ProductsCreated    int      `json:"products_created"`
	ProductsUpdated    int      `json:"products_updated"`
	LinksCreated       int      `json:"links_created"`
}

// ImportFailure is the body of a whole-request import failure
type ImportFailure struct {
	OK   bool     `json:"ok"`
	Logs []string `json:"logs"`
}
