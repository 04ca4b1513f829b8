package seeders

import (
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moc-service/internal/models"
)

// SeedApprovalLevels installs the default approver chain when no levels exist.
// Existing configuration, including deliberately deactivated levels, is never
// touched.
func SeedApprovalLevels(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.ApprovalLevel{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	levels := []models.ApprovalLevel{
		{Order: 1, RoleKey: models.RoleSupervisor, GateStage: models.GateValidation, IsActive: true},
		{Order: 2, RoleKey: models.RoleAreaManager, GateStage: models.GateValidation, IsActive: true},
		{Order: 3, RoleKey: models.RoleDepartmentManager, GateStage: models.GateValidation, IsActive: true},
		{Order: 4, RoleKey: models.RoleAVP, GateStage: models.GateFinalApproval, IsActive: true},
	}

	if err := db.Create(&levels).Error; err != nil {
		log.Printf("Failed to seed approval levels: %v", err)
		return err
	}
	log.Printf("Seeded %d default approval levels", len(levels))
	return nil
}

// SeedLookups installs baseline reference data. Rows are upserted by code so
// re-running the seeder is safe; names of existing rows are left alone.
func SeedLookups(db *gorm.DB) error {
	divisions := []models.Division{
		{Code: "OPS", Name: "Operations"},
		{Code: "ENG", Name: "Engineering"},
		{Code: "MNT", Name: "Maintenance"},
	}
	for _, division := range divisions {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&division)
		if result.Error != nil {
			log.Printf("Failed to seed division %s: %v", division.Code, result.Error)
			return result.Error
		}
	}

	categories := []models.Category{
		{Code: "PROC", Name: "Process Change"},
		{Code: "EQP", Name: "Equipment Change"},
		{Code: "ORG", Name: "Organizational Change"},
		{Code: "DOC", Name: "Document Change"},
	}
	for _, category := range categories {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&category)
		if result.Error != nil {
			log.Printf("Failed to seed category %s: %v", category.Code, result.Error)
			return result.Error
		}
	}

	units := []models.Unit{
		{Code: "U1", Name: "Unit 1"},
		{Code: "U2", Name: "Unit 2"},
	}
	for _, unit := range units {
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&unit)
		if result.Error != nil {
			log.Printf("Failed to seed unit %s: %v", unit.Code, result.Error)
			return result.Error
		}
	}

	return nil
}
