package main

import (
	"fmt"
	"log"

	"github.com/localnerve/linkz-bio/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Prints the SQLite schema GORM derives from the models, for comparing
// against data/initdb.
func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	type object struct {
		Type string
		Name string
		SQL  string
	}
	var objects []object
	db.Raw("SELECT type, name, sql FROM sqlite_master WHERE sql IS NOT NULL ORDER BY type DESC, name").Scan(&objects)

	for _, o := range objects {
		fmt.Printf("\n=== %s: %s ===\n%s\n", o.Type, o.Name, o.SQL)
	}
}
