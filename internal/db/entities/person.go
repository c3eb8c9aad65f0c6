package entities

import "github.com/recordsdir/directory-backend/internal/db/interfaces"

// PersonSchema defines the database schema for persons.
// country_id is a weak reference: deleting a country never touches persons
// and a dangling id resolves to no country name.
var PersonSchema = &interfaces.Schema{
	TableName: "persons",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       interfaces.TypeString,
			PrimaryKey: true,
		},
		"name": {
			Type: interfaces.TypeString,
		},
		"email": {
			Type: interfaces.TypeString,
		},
		"date_of_birth": {
			Type:     interfaces.TypeTime,
			Nullable: true,
		},
		"gender": {
			Type:     interfaces.TypeString,
			Nullable: true,
		},
		"country_id": {
			Type:     interfaces.TypeString,
			Nullable: true,
		},
		"address": {
			Type:     interfaces.TypeString,
			Nullable: true,
		},
		"receive_newsletters": {
			Type:         interfaces.TypeBool,
			DefaultValue: false,
		},
		"created_at": {
			Type: interfaces.TypeTime,
		},
		"updated_at": {
			Type: interfaces.TypeTime,
		},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "idx_persons_country_id",
			Columns: []string{"country_id"},
		},
	},
}
