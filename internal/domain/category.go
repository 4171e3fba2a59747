package domain

// Category is a static taxonomy entry, seeded from configuration and
// read-only during normal operation.
type Category struct {
	ID       string
	Name     string
	NameKo   string
	Color    string
	Keywords []string
}
