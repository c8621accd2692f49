package plugin

import (
	"archive/zip"
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/durapage/durapage/pkg/logger"
)

const (
	NameTurnstilePatch = "turnstilePatch"
	NameFingerprint    = "my-fingerprint-chrome"
	NameUAPatch        = "cloudflare_ua_patch"
)

// URLs maps provisionable plugin names to their release archives.
func URLs() map[string]string {
	return map[string]string{
		NameTurnstilePatch: "https://github.com/gua12345/DrissionPage_Base_Code/releases/download/v1/turnstilePatch.zip",
		NameFingerprint:    "https://github.com/gua12345/DrissionPage_Base_Code/releases/download/v1/my-fingerprint-chrome-v2.5.1.zip",
		NameUAPatch:        "https://github.com/gua12345/DrissionPage_Base_Code/releases/download/v1/cloudflare_ua_patch.zip",
	}
}

func Names() []string {
	return []string{
		NameTurnstilePatch,
		NameFingerprint,
		NameUAPatch,
	}
}

// ConsentFunc reports whether the named plugin may be downloaded.
type ConsentFunc func(name string) bool

func AutoConsent(string) bool {
	return true
}

// StdinConsent prompts on the given writer and reads answers line by line,
// accepting y/yes and n/no in any casing. Reader exhaustion counts as refusal.
func StdinConsent(reader io.Reader, writer io.Writer) ConsentFunc {
	scanner := bufio.NewScanner(reader)
	return func(name string) bool {
		for {
			fmt.Fprintf(writer, "plugin %s is missing, download it now? (y/n): ", name)
			if !scanner.Scan() {
				return false
			}
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "y", "yes":
				return true
			case "n", "no":
				return false
			}
			fmt.Fprintln(writer, "please answer y/yes or n/no")
		}
	}
}

type Provisioner struct {
	baseDir string
	client  *http.Client
	consent ConsentFunc
	logger  *slog.Logger
	urls    map[string]string
}

func NewProvisioner(baseDir string, transport http.RoundTripper, consent ConsentFunc, log *slog.Logger) *Provisioner {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if consent == nil {
		consent = AutoConsent
	}
	return &Provisioner{
		baseDir: baseDir,
		client: &http.Client{
			Transport: transport,
		},
		consent: consent,
		logger:  log,
		urls:    URLs(),
	}
}

// Dir returns the local directory the named plugin unpacks into.
func (p *Provisioner) Dir(name string) string {
	return filepath.Join(p.baseDir, name)
}

func (p *Provisioner) Exists(name string) bool {
	_, err := os.Stat(p.Dir(name))
	return err == nil
}

// Ensure reports whether the named plugin directory is available, downloading
// and unpacking it with user consent when missing. Provisioning failures are
// logged and reported as unavailable rather than raised.
func (p *Provisioner) Ensure(ctx context.Context, name string) bool {
	url, ok := p.prepare(name)
	if !ok {
		return p.Exists(name)
	}
	return p.download(ctx, name, url)
}

// EnsureAll provisions the named plugins, collecting download consent for each
// missing one up front and fetching them concurrently. It returns the available
// subset in input order.
func (p *Provisioner) EnsureAll(ctx context.Context, names ...string) []string {
	var group errgroup.Group
	available := make([]bool, len(names))
	for i, name := range names {
		url, ok := p.prepare(name)
		if !ok {
			available[i] = p.Exists(name)
			continue
		}
		i, name := i, name
		group.Go(func() error {
			available[i] = p.download(ctx, name, url)
			return nil
		})
	}
	group.Wait()
	result := make([]string, 0, len(names))
	for i, name := range names {
		if available[i] {
			result = append(result, name)
		}
	}
	return result
}

// prepare runs the pre-download checks and returns the archive url when a
// download should proceed.
func (p *Provisioner) prepare(name string) (string, bool) {
	if p.Exists(name) {
		p.logger.Info("plugin already available", slog.String("plugin", name))
		return "", false
	}
	p.logger.Warn("plugin is missing", slog.String("plugin", name))
	url, found := p.urls[name]
	if !found {
		p.logger.Error("no download url configured for plugin", slog.String("plugin", name))
		return "", false
	}
	if !p.consent(name) {
		p.logger.Info("download declined for plugin", slog.String("plugin", name))
		return "", false
	}
	return url, true
}

func (p *Provisioner) download(ctx context.Context, name, url string) bool {
	p.logger.Info("downloading plugin", slog.String("plugin", name), slog.String("url", url))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		p.logger.Error("failure creating plugin download request", slog.String("plugin", name), logger.Error(err))
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("failure downloading plugin", slog.String("plugin", name), logger.Error(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err = NewUnexpectedStatusCodeError(resp.StatusCode, http.StatusOK)
		p.logger.Error("failure downloading plugin", slog.String("plugin", name), logger.Error(err))
		return false
	}
	archivePath := filepath.Join(p.baseDir, name+".zip")
	if err = saveArchive(archivePath, resp.Body); err != nil {
		p.logger.Error("failure saving plugin archive", slog.String("plugin", name), logger.Error(err))
		return false
	}
	defer os.Remove(archivePath)
	if err = extractArchive(archivePath, p.baseDir); err != nil {
		p.logger.Error("failure extracting plugin archive", slog.String("plugin", name), logger.Error(err))
		return false
	}
	if !p.Exists(name) {
		p.logger.Error("plugin directory not found after extraction", slog.String("plugin", name))
		return false
	}
	p.logger.Info("installed plugin", slog.String("plugin", name))
	return true
}

// saveArchive streams body into a file at path, removing the partial file on
// failure.
func saveArchive(path string, body io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failure creating archive file %s: %w", path, err)
	}
	if _, err = io.Copy(file, body); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failure writing archive file %s: %w", path, err)
	}
	if err = file.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failure closing archive file %s: %w", path, err)
	}
	return nil
}

func extractArchive(path, destination string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failure opening zip archive %s: %w", path, err)
	}
	defer reader.Close()
	for _, entry := range reader.File {
		if err = extractEntry(entry, destination); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destination string) error {
	target := filepath.Join(destination, entry.Name)
	rel, err := filepath.Rel(destination, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %s escapes the destination directory", entry.Name)
	}
	if entry.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0755); err != nil {
			return fmt.Errorf("failure creating directory %s: %w", target, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failure creating directory for %s: %w", target, err)
	}
	source, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failure opening archive entry %s: %w", entry.Name, err)
	}
	defer source.Close()
	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failure creating file %s: %w", target, err)
	}
	defer file.Close()
	if _, err = io.Copy(file, source); err != nil {
		return fmt.Errorf("failure writing archive entry %s: %w", entry.Name, err)
	}
	return nil
}
