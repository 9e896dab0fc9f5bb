package links

// Descriptor is one discovered image reference: the unit of work for the
// download step. Created by Extract, consumed but never mutated afterwards.
type Descriptor struct {
	URL  string `json:"url"`
	Date string `json:"date"`
	Time string `json:"time"`
	Name string `json:"name"`
}
