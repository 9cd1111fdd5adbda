package yaml

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Quarantine moves a corrupted file into baseDir/quarantine with a
// timestamped name so the daemon can regenerate it.
func Quarantine(baseDir, filePath string) error {
	quarantineDir := filepath.Join(baseDir, "quarantine")
	if err := os.MkdirAll(quarantineDir, 0755); err != nil {
		return fmt.Errorf("create quarantine dir: %w", err)
	}

	baseName := filepath.Base(filePath)
	timestamp := time.Now().Format("20060102T150405")
	quarantinePath := filepath.Join(quarantineDir, fmt.Sprintf("%s.%s.corrupt", baseName, timestamp))

	if err := os.Rename(filePath, quarantinePath); err != nil {
		return fmt.Errorf("move to quarantine: %w", err)
	}

	log.Printf("quarantined corrupted file: %s (moved to %s)", filePath, quarantinePath)
	return nil
}

// RestoreFromBackup copies path.bak over path after checking that the
// backup itself parses.
func RestoreFromBackup(filePath string) error {
	bakPath := filePath + ".bak"
	if _, err := os.Stat(bakPath); os.IsNotExist(err) {
		return fmt.Errorf("no backup file: %s", bakPath)
	}

	content, err := os.ReadFile(bakPath)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if err := validateYAML(content); err != nil {
		return fmt.Errorf("backup YAML is also corrupted: %w", err)
	}

	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("restore from backup: %w", err)
	}

	log.Printf("restored from backup: %s", filePath)
	return nil
}

// RecoverCorruptedFile quarantines the file, then restores from backup,
// falling back to the given default content.
func RecoverCorruptedFile(baseDir, filePath string, fallback any) error {
	if err := Quarantine(baseDir, filePath); err != nil {
		return fmt.Errorf("quarantine failed: %w", err)
	}

	if err := RestoreFromBackup(filePath); err != nil {
		log.Printf("backup restore failed for %s: %v (regenerating defaults)", filePath, err)
	} else {
		return nil
	}

	if err := AtomicWrite(filePath, fallback); err != nil {
		return fmt.Errorf("regenerate defaults: %w", err)
	}
	return nil
}
