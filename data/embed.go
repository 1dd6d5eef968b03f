package data

import (
	_ "embed"
)

//go:embed seed/medicines.json
var SeedMedicines []byte
