package grid

// Variant selects how a grid is constructed and which manager backs it.
type Variant int

const (
	// Relational grids are backed by an entity manager over SQL tables.
	Relational Variant = iota
	// Document grids are backed by a document manager.
	Document
)

// VariantFor maps a grid type to its variant. Only "odm" selects Document;
// every other type, including the empty one, falls back to Relational.
func VariantFor(gridType string) Variant {
	if gridType == "odm" {
		return Document
	}
	return Relational
}

func (v Variant) String() string {
	if v == Document {
		return "odm"
	}
	return "orm"
}

// ManagerService is the container name of the variant's default manager,
// "<store>.entitymanager.<orm|odm>_default".
func (v Variant) ManagerService(store string) string {
	return store + ".entitymanager." + v.String() + "_default"
}
