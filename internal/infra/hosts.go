package infra

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
)

const (
	// BlockStartMarker and BlockEndMarker delimit the one section this
	// system owns inside the hosts file. Everything outside them belongs
	// to the OS and other software and is preserved verbatim.
	BlockStartMarker = "# === FOCUSGUARD BLOCK START ==="
	BlockEndMarker   = "# === FOCUSGUARD BLOCK END ==="

	// RedirectIP is the loopback address blocked hostnames resolve to,
	// landing them on the bypass-attempt listener.
	RedirectIP = "127.0.0.1"
)

// HostsFilePatcher implements domain.HostsPatcher.
//
// It performs a read-modify-write with no OS-level locking; the
// enforcement engine serializes calls through its state machine.
type HostsFilePatcher struct {
	path   string
	logger *zap.Logger
}

// NewHostsFilePatcher creates a patcher for the platform hosts file.
func NewHostsFilePatcher(logger *zap.Logger) *HostsFilePatcher {
	return &HostsFilePatcher{path: defaultHostsPath(), logger: logger}
}

// NewHostsFilePatcherWithPath creates a patcher for a specific file (for tests).
func NewHostsFilePatcherWithPath(path string, logger *zap.Logger) *HostsFilePatcher {
	return &HostsFilePatcher{path: path, logger: logger}
}

// defaultHostsPath locates the hosts file from the OS system root.
func defaultHostsPath() string {
	if runtime.GOOS == "windows" {
		root := os.Getenv("SystemRoot")
		if root == "" {
			root = `C:\Windows`
		}
		return filepath.Join(root, "System32", "drivers", "etc", "hosts")
	}
	return "/etc/hosts"
}

// Path returns the hosts file path this patcher edits.
func (p *HostsFilePatcher) Path() string {
	return p.path
}

// Apply writes the block section with one redirect line per valid
// hostname. An existing section is excised first, so re-applying is
// idempotent rather than additive. Returns the count of hostnames
// actually written; invalid entries are skipped silently.
func (p *HostsFilePatcher) Apply(hostnames []string) (int, error) {
	content, err := p.readHosts()
	if err != nil {
		return 0, err
	}

	clean := removeMarkerBlock(content)

	valid := make([]string, 0, len(hostnames))
	seen := make(map[string]struct{}, len(hostnames))
	for _, h := range hostnames {
		host := strings.ToLower(strings.TrimSpace(h))
		if !IsValidHostname(host) {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		valid = append(valid, host)
	}
	sort.Strings(valid)

	var sb strings.Builder
	trimmed := strings.TrimRight(clean, " \t\r\n")
	if trimmed != "" {
		sb.WriteString(trimmed)
		sb.WriteString("\n")
	}
	sb.WriteString(BlockStartMarker + "\n")
	for _, host := range valid {
		sb.WriteString(RedirectIP + " " + host + "\n")
	}
	sb.WriteString(BlockEndMarker + "\n")

	if err := p.writeHosts(sb.String()); err != nil {
		return 0, err
	}
	return len(valid), nil
}

// Remove excises the block section if present. A file without markers is
// a successful no-op and is not rewritten.
func (p *HostsFilePatcher) Remove() error {
	content, err := p.readHosts()
	if err != nil {
		return err
	}

	if !strings.Contains(content, BlockStartMarker) &&
		!strings.Contains(content, BlockEndMarker) {
		return nil
	}

	clean := strings.TrimRight(removeMarkerBlock(content), " \t\r\n")
	if clean != "" {
		clean += "\n"
	}
	return p.writeHosts(clean)
}

// HasActiveBlock reports whether both markers are present. Used by crash
// recovery, not by the normal flow. Read failures count as no block.
func (p *HostsFilePatcher) HasActiveBlock() bool {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return false
	}
	content := string(data)
	return strings.Contains(content, BlockStartMarker) &&
		strings.Contains(content, BlockEndMarker)
}

// FlushResolverCache asks the OS to drop its DNS cache. The hosts-file
// redirect is authoritative regardless, so failures are swallowed.
func (p *HostsFilePatcher) FlushResolverCache() {
	var cmds [][]string
	switch runtime.GOOS {
	case "darwin":
		cmds = [][]string{
			{"dscacheutil", "-flushcache"},
			{"killall", "-HUP", "mDNSResponder"},
		}
	case "linux":
		cmds = [][]string{{"resolvectl", "flush-caches"}}
	case "windows":
		cmds = [][]string{{"ipconfig", "/flushdns"}}
	default:
		return
	}

	for _, args := range cmds {
		if err := exec.Command(args[0], args[1:]...).Run(); err != nil {
			p.logger.Debug("dns cache flush failed",
				zap.Strings("cmd", args),
				zap.Error(err))
		}
	}
}

func (p *HostsFilePatcher) readHosts() (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", p.classify(err)
	}
	return string(data), nil
}

func (p *HostsFilePatcher) writeHosts(content string) error {
	if err := AtomicWriteFile(p.path, []byte(content), 0644); err != nil {
		return p.classify(err)
	}
	return nil
}

// classify maps I/O failures onto the user-actionable error kinds.
func (p *HostsFilePatcher) classify(err error) error {
	switch {
	case os.IsPermission(err):
		return &domain.EnforcementError{
			Kind:    domain.KindPrivilege,
			Message: "Administrator privileges required!",
			Err:     err,
		}
	case os.IsNotExist(err):
		return domain.NewResourceError("Hosts file not found.", err)
	default:
		return domain.NewResourceError("Could not access hosts file.", err)
	}
}

// removeMarkerBlock excises the marker-delimited section in one substring
// operation, leaving everything outside it untouched.
func removeMarkerBlock(content string) string {
	startIdx := strings.Index(content, BlockStartMarker)
	endIdx := strings.Index(content, BlockEndMarker)

	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return content
	}

	after := content[endIdx+len(BlockEndMarker):]
	if len(after) > 0 && after[0] == '\n' {
		after = after[1:]
	}
	return content[:startIdx] + after
}

// IsValidHostname validates an RFC-1123-style hostname: at most 253
// characters, at least one dot, each dot-separated label 1-63 characters
// of alphanumerics and hyphens with no leading or trailing hyphen.
func IsValidHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			if r == '-' || (r >= '0' && r <= '9') ||
				(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				continue
			}
			return false
		}
	}
	return true
}

// Ensure HostsFilePatcher implements domain.HostsPatcher.
var _ domain.HostsPatcher = (*HostsFilePatcher)(nil)
