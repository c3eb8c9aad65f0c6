package entities

import "github.com/recordsdir/directory-backend/internal/db/interfaces"

// CountrySchema defines the database schema for countries
var CountrySchema = &interfaces.Schema{
	TableName: "countries",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       interfaces.TypeString,
			PrimaryKey: true,
		},
		"name": {
			Type:   interfaces.TypeString,
			Unique: true,
		},
		"created_at": {
			Type: interfaces.TypeTime,
		},
		"updated_at": {
			Type: interfaces.TypeTime,
		},
	},
}
