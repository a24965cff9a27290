// Package security finds credentials that agents wrote into a generated
// project and masks credentials in container output before it is logged.
package security

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/felixgeelhaar/metaforge/internal/log"
)

// SecretType represents the type of secret detected
type SecretType string

const (
	SecretAnthropicKey  SecretType = "anthropic_api_key"
	SecretAWSKey        SecretType = "aws_access_key"
	SecretAWSSecret     SecretType = "aws_secret_key"
	SecretGitHubToken   SecretType = "github_token"
	SecretSlackToken    SecretType = "slack_token"
	SecretPrivateKey    SecretType = "private_key"
	SecretAPIKey        SecretType = "api_key"
	SecretPassword      SecretType = "password"
	SecretJWT           SecretType = "jwt_token"
	SecretDatabaseURL   SecretType = "database_url"
	SecretGenericSecret SecretType = "generic_secret"
)

// Severity levels, most severe first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
)

var severityRank = map[string]int{SeverityCritical: 0, SeverityHigh: 1, SeverityMedium: 2}

// Finding is one suspected secret in a generated file.
type Finding struct {
	Type        SecretType `json:"type" yaml:"type"`
	File        string     `json:"file" yaml:"file"`
	Line        int        `json:"line" yaml:"line"`
	Match       string     `json:"match" yaml:"match"`
	Severity    string     `json:"severity" yaml:"severity"`
	Description string     `json:"description" yaml:"description"`
}

type pattern struct {
	Type        SecretType
	Pattern     *regexp.Regexp
	Description string
	Severity    string
}

// patterns are tried in order. Specific token formats come before the
// generic key/secret assignments so Redact masks the token itself.
var patterns = []pattern{
	{
		Type:        SecretAnthropicKey,
		Pattern:     regexp.MustCompile(`sk-ant-[A-Za-z0-9_\-]{20,}`),
		Description: "Anthropic API Key",
		Severity:    SeverityCritical,
	},
	{
		Type:        SecretAWSKey,
		Pattern:     regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		Description: "AWS Access Key ID",
		Severity:    SeverityCritical,
	},
	{
		Type:        SecretAWSSecret,
		Pattern:     regexp.MustCompile(`(?i)(aws|amazon)[\s\w]*secret[\s\w]*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
		Description: "AWS Secret Access Key",
		Severity:    SeverityCritical,
	},
	{
		Type:        SecretGitHubToken,
		Pattern:     regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9_]{36,}`),
		Description: "GitHub Token",
		Severity:    SeverityHigh,
	},
	{
		Type:        SecretSlackToken,
		Pattern:     regexp.MustCompile(`xox[baprs]-[0-9]{10,12}-[0-9]{10,12}-[A-Za-z0-9]{24,}`),
		Description: "Slack Token",
		Severity:    SeverityHigh,
	},
	{
		Type:        SecretPrivateKey,
		Pattern:     regexp.MustCompile(`-----BEGIN\s+(RSA|DSA|EC|OPENSSH|PGP)\s+PRIVATE KEY-----`),
		Description: "Private Key",
		Severity:    SeverityCritical,
	},
	{
		Type:        SecretDatabaseURL,
		Pattern:     regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb|redis|amqp)://[^\s'"/:]+:[^\s'"@]+@`),
		Description: "Database Connection String with Credentials",
		Severity:    SeverityCritical,
	},
	{
		Type:        SecretJWT,
		Pattern:     regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`),
		Description: "JWT Token",
		Severity:    SeverityMedium,
	},
	{
		Type:        SecretAPIKey,
		Pattern:     regexp.MustCompile(`(?i)api[\s_-]?key[\s\w]*[:=]\s*["']?([A-Za-z0-9_\-]{32,})["']?`),
		Description: "Generic API Key",
		Severity:    SeverityMedium,
	},
	{
		Type:        SecretPassword,
		Pattern:     regexp.MustCompile(`(?i)password[\s\w]*[:=]\s*["']([^"']{8,})["']`),
		Description: "Hardcoded Password",
		Severity:    SeverityHigh,
	},
	{
		Type:        SecretGenericSecret,
		Pattern:     regexp.MustCompile(`(?i)secret[\s\w]*[:=]\s*["']([A-Za-z0-9_\-+=]{20,})["']`),
		Description: "Generic Secret",
		Severity:    SeverityMedium,
	},
}

const redacted = "***REDACTED***"

// maxMatchLen bounds the redacted line kept in a Finding.
const maxMatchLen = 120

// DefaultMaxFileSize skips files larger than 1 MiB.
const DefaultMaxFileSize = 1 << 20

// Scanner scans generated projects for secrets.
type Scanner struct {
	excludeDirs  []string
	excludeFiles []*regexp.Regexp
	maxFileSize  int64
	logger       *log.Logger
}

// NewScanner creates a scanner with the default exclusions.
func NewScanner(logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Nop()
	}
	return &Scanner{
		excludeDirs: []string{
			".git",
			"node_modules",
			"vendor",
			"dist",
			"build",
			".venv",
			"__pycache__",
			".claude",
			".metaforge",
		},
		excludeFiles: []*regexp.Regexp{
			regexp.MustCompile(`\.(log|lock|sum|png|jpe?g|gif|ico|woff2?|ttf|pdf|zip|gz)$`),
			regexp.MustCompile(`\.min\.(js|css)$`),
			regexp.MustCompile(`(^|/)\.env\.example$`),
		},
		maxFileSize: DefaultMaxFileSize,
		logger:      logger.WithComponent("security"),
	}
}

// AddExcludeDir excludes every directory with the given base name.
func (s *Scanner) AddExcludeDir(name string) {
	s.excludeDirs = append(s.excludeDirs, name)
}

// ScanFile scans a single file. Findings carry the path as given.
func (s *Scanner) ScanFile(path string) ([]Finding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var findings []Finding
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), DefaultMaxFileSize)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := sc.Text()
		for _, p := range patterns {
			if !p.Pattern.MatchString(line) {
				continue
			}
			findings = append(findings, Finding{
				Type:        p.Type,
				File:        path,
				Line:        lineNum,
				Match:       truncate(strings.TrimSpace(Redact(line)), maxMatchLen),
				Severity:    p.Severity,
				Description: p.Description,
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("error scanning file: %w", err)
	}
	return findings, nil
}

// ScanDir scans root recursively. Finding paths are relative to root and
// findings are ordered by severity, then file and line. Unreadable files
// are skipped.
func (s *Scanner) ScanDir(ctx context.Context, root string) ([]Finding, error) {
	var all []Finding
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && s.excludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if s.excludedFile(rel) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > s.maxFileSize {
			return nil
		}

		found, err := s.ScanFile(path)
		if err != nil {
			s.logger.Debug("skipping file", "file", rel, "error", err)
			return nil
		}
		for i := range found {
			found[i].File = rel
		}
		all = append(all, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if severityRank[a.Severity] != severityRank[b.Severity] {
			return severityRank[a.Severity] < severityRank[b.Severity]
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	s.logger.Debug("secret scan finished", "root", root, "findings", len(all))
	return all, nil
}

func (s *Scanner) excludedDir(name string) bool {
	for _, excluded := range s.excludeDirs {
		if name == excluded {
			return true
		}
	}
	return false
}

func (s *Scanner) excludedFile(rel string) bool {
	for _, p := range s.excludeFiles {
		if p.MatchString(rel) {
			return true
		}
	}
	return false
}

// Redact masks every secret in line, keeping the first four characters
// of each match.
func Redact(line string) string {
	for _, p := range patterns {
		line = p.Pattern.ReplaceAllStringFunc(line, mask)
	}
	return line
}

func mask(match string) string {
	if len(match) <= 12 {
		return redacted
	}
	return match[:4] + redacted
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CountBySeverity tallies findings per severity level.
func CountBySeverity(findings []Finding) map[string]int {
	counts := make(map[string]int, len(severityRank))
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
