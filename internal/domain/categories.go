package domain

// DefaultCategories is the suggestion list offered to callers. The server
// does not reject categories outside of it.
var DefaultCategories = []string{
	"Air conditioning",
	"Plumbing",
	"Electrical",
	"Furniture",
	"Housekeeping",
	"Noise",
	"Pest control",
	"Pool",
	"TV / Internet",
	"Door / Lock",
	"Other",
}
