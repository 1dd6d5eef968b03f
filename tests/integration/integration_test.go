package integration_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/database"
	"github.com/medibro/medibro-server/internal/handlers"
	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/services"
	"github.com/medibro/medibro-server/internal/types"
	"github.com/medibro/medibro-server/tests/helpers"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TestWithMariaDB tests the service with a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	// Get container host and port
	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
	}

	// Wait for database to be ready
	time.Sleep(5 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	runIntegrationSuite(t, db)
}

// TestWithPostgreSQL tests the service with a real PostgreSQL container
func TestWithPostgreSQL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start PostgreSQL container
	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("POSTGRES_IMAGE"),
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_USER":     "testuser",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}()

	// Get container host and port
	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Create config
	cfg := &config.Config{
		DBType:            "postgres",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "testdb",
		DBUser:            "testuser",
		DBPassword:        "testpass",
		DBConnectionLimit: 5,
	}

	// Wait for database to be ready
	time.Sleep(2 * time.Second)

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	runIntegrationSuite(t, db)
}

func runIntegrationSuite(t *testing.T, db *gorm.DB) {
	t.Run("RegisterAndSchedule", func(t *testing.T) {
		testRegisterAndSchedule(t, db)
	})

	t.Run("ScheduleUniqueConstraint", func(t *testing.T) {
		testScheduleUniqueConstraint(t, db)
	})

	t.Run("DoseStateConflict", func(t *testing.T) {
		testDoseStateConflict(t, db)
	})

	t.Run("DeviceReportDedupe", func(t *testing.T) {
		testDeviceReportDedupe(t, db)
	})

	t.Run("Handler409Behavior", func(t *testing.T) {
		testHandler409Behavior(t, db)
	})
}

// testRegisterAndSchedule walks the core onboarding path: account, medicine,
// generated dose schedule.
func testRegisterAndSchedule(t *testing.T, db *gorm.DB) {
	user, err := services.RegisterUser(db, services.RegisterInput{
		Username: "int-maria",
		Password: "secret123",
		Name:     "Maria",
		Age:      61,
	})
	if err != nil {
		t.Fatalf("Failed to register user: %v", err)
	}

	med, err := services.CreateMedicine(db, user.ID, services.MedicineInput{
		Name:     "Metformin",
		Dosage:   "500mg",
		Times:    []string{"08:00", "20:00"},
		Slot:     "1",
		Quantity: 60,
	}, 3)
	if err != nil {
		t.Fatalf("Failed to create medicine: %v", err)
	}

	var count int64
	if err := db.Model(&models.DoseLog{}).
		Where("medicine_id = ?", med.ID).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count dose logs: %v", err)
	}
	// Two times over a 3 day window, minus slots already past today
	if count < 4 || count > 6 {
		t.Errorf("Expected 4-6 scheduled doses, got %d", count)
	}

	var pending int64
	if err := db.Model(&models.DoseLog{}).
		Where("medicine_id = ? AND status = ?", med.ID, models.StatusPending).
		Count(&pending).Error; err != nil {
		t.Fatalf("Failed to count pending logs: %v", err)
	}
	if pending != count {
		t.Errorf("Expected all %d doses pending, got %d", count, pending)
	}
}

// testScheduleUniqueConstraint verifies the composite unique index actually
// dedupes regeneration on a real database, not just in sqlite.
func testScheduleUniqueConstraint(t *testing.T, db *gorm.DB) {
	user, err := services.RegisterUser(db, services.RegisterInput{
		Username: "int-unique",
		Password: "secret123",
		Name:     "Unique",
		Age:      50,
	})
	if err != nil {
		t.Fatalf("Failed to register user: %v", err)
	}

	med, err := services.CreateMedicine(db, user.ID, services.MedicineInput{
		Name:     "Lisinopril",
		Dosage:   "10mg",
		Times:    []string{"09:00"},
		Slot:     "2",
		Quantity: 30,
	}, 3)
	if err != nil {
		t.Fatalf("Failed to create medicine: %v", err)
	}

	var before int64
	db.Model(&models.DoseLog{}).Where("medicine_id = ?", med.ID).Count(&before)

	if _, err := services.GenerateSchedule(db, med, time.Now(), 3); err != nil {
		t.Fatalf("Failed to regenerate schedule: %v", err)
	}

	var after int64
	db.Model(&models.DoseLog{}).Where("medicine_id = ?", med.ID).Count(&after)
	if after != before {
		t.Errorf("Expected dose count unchanged (%d), got %d", before, after)
	}
}

// testDoseStateConflict exercises the conditional-update transition guard
// against a real database.
func testDoseStateConflict(t *testing.T, db *gorm.DB) {
	user := helpers.CreateTestUser(t, db, "int-conflict", "secret123")
	med := helpers.CreateTestMedicine(t, db, user.ID, "Warfarin", "3", []string{"10:00"})
	log := helpers.CreateTestDoseLog(t, db, med, time.Now().Add(-10*time.Minute), models.StatusPending)

	res, err := services.MarkTaken(db, user.ID, log.ID, time.Now())
	if err != nil {
		t.Fatalf("Failed to mark taken: %v", err)
	}
	if !res.Applied {
		t.Error("Expected first transition to apply")
	}

	// A conflicting terminal outcome must be rejected
	_, err = services.MarkSkipped(db, user.ID, log.ID, "changed my mind")
	if err == nil {
		t.Fatal("Expected state conflict error")
	}
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Code != "STATE_CONFLICT" {
		t.Errorf("Expected STATE_CONFLICT, got: %v", err)
	}

	// Replaying the same outcome is absorbed
	res, err = services.MarkTaken(db, user.ID, log.ID, time.Now())
	if err != nil {
		t.Fatalf("Failed on duplicate mark taken: %v", err)
	}
	if res.Applied {
		t.Error("Expected duplicate transition to be absorbed")
	}
}

// testDeviceReportDedupe verifies the per-device sequence high-water mark
// survives a round trip through a real database.
func testDeviceReportDedupe(t *testing.T, db *gorm.DB) {
	user := helpers.CreateTestUser(t, db, "int-device", "secret123")
	med := helpers.CreateTestMedicine(t, db, user.ID, "Atorvastatin", "4", []string{"21:00"})
	log := helpers.CreateTestDoseLog(t, db, med, time.Now().Add(-5*time.Minute), models.StatusPending)
	helpers.CreateTestDevice(t, db, "MD-BOT-INT", user.ID)

	seq := uint64(10)
	res, err := services.ReportStatus(db, "MD-BOT-INT", services.ReportInput{
		LogID: log.ID, Status: "dispensed", Seq: &seq,
	})
	if err != nil {
		t.Fatalf("Failed to report status: %v", err)
	}
	if !res.Applied {
		t.Error("Expected first report to apply")
	}

	res, err = services.ReportStatus(db, "MD-BOT-INT", services.ReportInput{
		LogID: log.ID, Status: "dispensed", Seq: &seq,
	})
	if err != nil {
		t.Fatalf("Failed on redelivered report: %v", err)
	}
	if !res.Duplicate {
		t.Error("Expected redelivery to be flagged duplicate")
	}

	var binding models.DeviceBinding
	if err := db.First(&binding, "bot_id = ?", "MD-BOT-INT").Error; err != nil {
		t.Fatalf("Failed to reload binding: %v", err)
	}
	if binding.LastSeq != 10 {
		t.Errorf("Expected last seq 10, got %d", binding.LastSeq)
	}
}

// testHandler409Behavior tests the handler's conflict response with a real database
func testHandler409Behavior(t *testing.T, db *gorm.DB) {
	user := helpers.CreateTestUser(t, db, "int-handler", "secret123")
	med := helpers.CreateTestMedicine(t, db, user.ID, "Amlodipine", "5", []string{"11:00"})
	log := helpers.CreateTestDoseLog(t, db, med, time.Now().Add(-5*time.Minute), models.StatusSkipped)
	helpers.CreateTestDevice(t, db, "MD-BOT-H409", user.ID)

	app := fiber.New()
	handler := &handlers.HardwareHandler{DB: db, Cfg: &config.Config{}, Logger: zap.NewNop()}
	app.Post("/api/hardware/update-status", handler.UpdateStatus)

	body := []byte(`{"botId":"MD-BOT-H409","logId":"` + log.ID + `","status":"taken"}`)
	req := httptest.NewRequest("POST", "/api/hardware/update-status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}
	helpers.AssertStatus(t, resp, 409)
}

// TestHealthCheck tests the health check functionality
func TestHealthCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Start MariaDB container
	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "testdb",
				"MYSQL_USER":          "testuser",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.Config{
		DBType:     "mysql",
		DBHost:     host,
		DBPort:     port.Port(),
		DBDatabase: "testdb",
		DBUser:     "testuser",
		DBPassword: "testpass",
	}

	time.Sleep(5 * time.Second)

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run health check
	result := services.HealthCheck(cfg, db, zap.NewNop())

	if result.Status != "healthy" {
		t.Errorf("Expected status healthy, got: %s", result.Status)
	}
	if result.Database != "ok" {
		t.Errorf("Expected database ok, got: %s", result.Database)
	}
	if result.Details["database_type"] != "mysql" {
		t.Errorf("Expected database_type mysql, got: %s", result.Details["database_type"])
	}
}
