package services_test

import (
	"os"
	"path/filepath"
	"testing"

	"prepdeck_go_backend/internal/models"
	"prepdeck_go_backend/internal/services"

	"github.com/stretchr/testify/assert"
)

func writeTutorConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write tutor config: %v", err)
	}
}

func TestSyncTutors(t *testing.T) {
	t.Run("Syncs YAML files into tutor rows", func(t *testing.T) {
		db := newTestDB(t)
		dir := t.TempDir()
		writeTutorConfig(t, dir, "behavioral.yaml", "name: Behavioral Interviews\ndeck-name: behavioral\nurl-path: /tutors/behavioral\n")
		writeTutorConfig(t, dir, "system-design.yml", "name: System Design\ndeck-name: system-design\nurl-path: /tutors/system-design\n")
		writeTutorConfig(t, dir, "notes.txt", "not a tutor config")

		tutorService := services.NewTutorService(db, dir)
		synced, err := tutorService.SyncTutors()

		assert.NoError(t, err)
		assert.Equal(t, 2, synced)

		tutors, err := tutorService.ListTutors()
		assert.NoError(t, err)
		assert.Len(t, tutors, 2)
		assert.Equal(t, "Behavioral Interviews", tutors[0].Name)
		assert.Equal(t, "behavioral", tutors[0].DeckName)
	})

	t.Run("Re-sync updates existing rows instead of duplicating", func(t *testing.T) {
		db := newTestDB(t)
		dir := t.TempDir()
		writeTutorConfig(t, dir, "behavioral.yaml", "name: Behavioral Interviews\ndeck-name: behavioral\nurl-path: /tutors/behavioral\n")

		tutorService := services.NewTutorService(db, dir)
		_, err := tutorService.SyncTutors()
		assert.NoError(t, err)

		writeTutorConfig(t, dir, "behavioral.yaml", "name: Behavioral Interviews v2\ndeck-name: behavioral\nurl-path: /tutors/behavioral\n")
		synced, err := tutorService.SyncTutors()
		assert.NoError(t, err)
		assert.Equal(t, 1, synced)

		var tutors []models.Tutor
		db.Find(&tutors)
		assert.Len(t, tutors, 1)
		assert.Equal(t, "Behavioral Interviews v2", tutors[0].Name)
	})

	t.Run("Broken file is skipped and the rest still sync", func(t *testing.T) {
		db := newTestDB(t)
		dir := t.TempDir()
		writeTutorConfig(t, dir, "good.yaml", "name: Good\ndeck-name: good\nurl-path: /tutors/good\n")
		writeTutorConfig(t, dir, "broken.yaml", "name: [unclosed\n")

		tutorService := services.NewTutorService(db, dir)
		synced, err := tutorService.SyncTutors()

		assert.NoError(t, err)
		assert.Equal(t, 1, synced)
	})
}
