package services

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"prepdeck_go_backend/internal/models"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TutorService syncs tutor definitions from YAML config files into the
// database, keyed by the file's path relative to the tutors directory.
type TutorService struct {
	db        *gorm.DB
	tutorsDir string
}

func NewTutorService(db *gorm.DB, tutorsDir string) *TutorService {
	return &TutorService{db: db, tutorsDir: tutorsDir}
}

type tutorConfig struct {
	Name     string `yaml:"name"`
	DeckName string `yaml:"deck-name"`
	URLPath  string `yaml:"url-path"`
}

// SyncTutors walks the tutors directory and upserts one Tutor row per YAML
// file found. A broken file is logged and skipped; the rest still sync.
// Returns the number of files processed successfully.
func (s *TutorService) SyncTutors() (int, error) {
	synced := 0
	err := filepath.WalkDir(s.tutorsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		relPath, err := filepath.Rel(s.tutorsDir, path)
		if err != nil {
			return err
		}

		if err := s.syncFile(path, relPath); err != nil {
			log.Error().Err(err).Str("config_path", relPath).Msg("Failed to sync tutor config")
			return nil
		}
		synced++
		return nil
	})
	if err != nil {
		return synced, fmt.Errorf("failed to walk tutors directory %s: %v", s.tutorsDir, err)
	}
	return synced, nil
}

func (s *TutorService) syncFile(path, relPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cfg tutorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	tutor := models.Tutor{
		ConfigPath: relPath,
		Name:       cfg.Name,
		DeckName:   cfg.DeckName,
		URLPath:    cfg.URLPath,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "deck_name", "url_path", "updated_at"}),
	}).Create(&tutor).Error
}

func (s *TutorService) ListTutors() ([]models.Tutor, error) {
	var tutors []models.Tutor
	result := s.db.Order("name ASC").Find(&tutors)
	if result.Error != nil {
		return nil, result.Error
	}
	return tutors, nil
}
