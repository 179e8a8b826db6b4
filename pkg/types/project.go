package types

// Project is the active workspace context a session runs against. The
// controller refuses to submit turns until a project is open.
type Project struct {
	ID        string `json:"id"`
	Directory string `json:"directory"`
}
