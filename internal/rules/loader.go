package rules

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pilot-net/siem-pipeline/pkg/types"
)

// unitSeconds maps a timeframe suffix to its multiplier in seconds.
var unitSeconds = map[byte]int64{'s': 1, 'm': 60, 'h': 3600, 'd': 86400}

// parseTimeframe parses strings matching ^[0-9]+[smhd]$.
func parseTimeframe(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	unit := s[len(s)-1]
	mult, ok := unitSeconds[unit]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe unit in %q", s)
	}
	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timeframe %q: %w", s, err)
	}
	return time.Duration(n*mult) * time.Second, nil
}

// LoadDir recursively scans dir for files with the given extension,
// parses each as a rule, validates it, and returns only the rules
// that pass. Invalid files are skipped with a warning, never fatal.
func LoadDir(dir, extension string, logger *slog.Logger) ([]*types.Rule, error) {
	var loaded []*types.Rule

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, extension) {
			return nil
		}

		rule, err := loadFile(path)
		if err != nil {
			logger.Warn("discarding invalid rule file", "path", path, "error", err)
			return nil
		}
		loaded = append(loaded, rule)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning rules directory %s: %w", dir, err)
	}

	return loaded, nil
}

func loadFile(path string) (*types.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}

	var rule types.Rule
	if err := yaml.Unmarshal(data, &rule); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	rule.SourceFile = path

	if err := Validate(&rule); err != nil {
		return nil, err
	}

	if rule.Detection.Timeframe != "" {
		d, err := parseTimeframe(rule.Detection.Timeframe)
		if err != nil {
			return nil, err
		}
		rule.SetTimeframe(d)
	}

	return &rule, nil
}
