// Standalone seeding tool for demo and manual dispenser testing.
// Run with: go run tools/seed_demo.go
package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/medibro/medibro-server/data"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/database"
	"github.com/medibro/medibro-server/internal/services"
)

type seedMedicine struct {
	Name     string   `json:"name"`
	Dosage   string   `json:"dosage"`
	Slot     string   `json:"slot"`
	Times    []string `json:"times"`
	Quantity int      `json:"quantity"`
	Category string   `json:"category"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	user, err := services.RegisterUser(db, services.RegisterInput{
		Username: "demo",
		Password: "demo-password",
		Name:     "Demo Patient",
		Age:      65,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Created demo user %s (%s)\n", user.Username, user.ID)

	if _, err := services.RegisterDevice(db, "MD-BOT-DEMO", user.ID); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Registered dispenser MD-BOT-DEMO")

	var seeds []seedMedicine
	if err := json.Unmarshal(data.SeedMedicines, &seeds); err != nil {
		log.Fatal(err)
	}

	for _, s := range seeds {
		med, err := services.CreateMedicine(db, user.ID, services.MedicineInput{
			Name:     s.Name,
			Dosage:   s.Dosage,
			Times:     s.Times,
			Slot:      s.Slot,
			Quantity:  s.Quantity,
			Remaining: s.Quantity,
			Category:  s.Category,
		}, cfg.ScheduleWindowDays)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("   - %s (%s) - Slot %s at %v\n", med.Name, med.Dosage, med.Slot, s.Times)
	}

	fmt.Println("Seeding complete. Try:")
	fmt.Printf("   GET http://localhost:%s/api/hardware/schedule?botId=MD-BOT-DEMO\n", cfg.Port)
	fmt.Printf("   GET http://localhost:%s/api/hardware/slots?botId=MD-BOT-DEMO\n", cfg.Port)
}
