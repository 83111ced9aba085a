package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/gatekeeper/internal/storage"
	"github.com/jwebster45206/gatekeeper/pkg/level"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <level.json|level.yaml|levels_dir>...\n", os.Args[0])
		os.Exit(1)
	}

	files, err := expandArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, filename := range files {
		validator := &LevelValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed++
			continue
		}
		for _, w := range validator.warnings {
			fmt.Printf("%s\n", w)
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d level files are invalid\n", failed, len(files))
		os.Exit(1)
	}
	fmt.Printf("%d level file(s) are valid!\n", len(files))
}

// expandArgs replaces directory arguments with the level files inside them.
func expandArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		names, err := storage.ListLevelFiles(arg)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no level files in %s", arg)
		}
		for _, name := range names {
			files = append(files, filepath.Join(arg, name))
		}
	}
	return files, nil
}

type LevelValidator struct {
	errors   []string
	warnings []string
}

func (v *LevelValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	format, ok := level.FormatFromPath(baseName)
	if !ok {
		return fmt.Errorf("level file must have a .json, .yaml or .yml extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !isValidLevelFilename(nameWithoutExt) {
		return fmt.Errorf("level filename '%s' must be lowercase snake_case (e.g., 01_border_town.json, not Border-Town.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil
	v.warnings = nil

	l, err := level.DecodeStrict(data, format)
	if err != nil {
		return fmt.Errorf("file %s failed strict %s unmarshaling: %w", filename, format, err)
	}

	v.validateLevel(l)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *LevelValidator) validateLevel(l level.Level) {
	if err := l.Validate(); err != nil {
		v.addError(err.Error())
	}

	if len(l.NPCs) == 0 {
		v.addWarning(fmt.Sprintf("level '%s' has no npcs and completes immediately", l.Name))
		return
	}

	reals := 0
	for i, npc := range l.NPCs {
		v.validateNPC(i, npc)
		if npc.Kind == level.KindReal {
			reals++
		}
	}
	if reals == 0 {
		v.addWarning(fmt.Sprintf("level '%s' has no real npcs", l.Name))
	}
}

func (v *LevelValidator) validateNPC(i int, npc level.NPC) {
	label := fmt.Sprintf("npc %d", i)
	if npc.CharacterName != "" {
		label = fmt.Sprintf("npc %d (%s)", i, npc.CharacterName)
	} else {
		v.addWarning(label + " has no characterName")
	}

	if len(npc.QAPairs) == 0 {
		v.addWarning(label + " has no questions")
	}

	seen := make(map[string]bool, len(npc.QAPairs))
	for _, pair := range npc.QAPairs {
		q := strings.ToLower(strings.TrimSpace(pair.Question))
		if q == "" {
			continue
		}
		if seen[q] {
			v.addError(fmt.Sprintf("%s asks '%s' more than once", label, pair.Question))
		}
		seen[q] = true
		if pair.Answer == "" {
			v.addWarning(fmt.Sprintf("%s has no answer for '%s'", label, pair.Question))
		}
	}
}

func (v *LevelValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *LevelValidator) addWarning(msg string) {
	v.warnings = append(v.warnings, "  warning: "+msg)
}

var validFilenameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*[a-z0-9]$|^[a-z0-9]$`)

func isValidLevelFilename(name string) bool {
	// Allow 'x.' prefix for experimental levels
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
