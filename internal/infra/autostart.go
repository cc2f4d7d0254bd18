package infra

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"
)

// launchd plist template (macOS). Runs the session daemon at login and
// restarts it after a crash.
const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>run</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ProcessType</key>
    <string>Background</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

// systemd unit template (Linux).
const systemdTemplate = `[Unit]
Description=focusguard session daemon
After=network.target

[Service]
ExecStart={{.ExecutablePath}} run
Restart=on-failure
RestartSec=10

[Install]
WantedBy={{.WantedBy}}
`

const autostartLabel = "com.focusguard.daemon"

type autostartParams struct {
	Label          string
	ExecutablePath string
	LogPath        string
	ErrorLogPath   string
	WantedBy       string
}

// AutostartManager installs the session daemon as a login/boot service:
// a launchd plist on macOS, a systemd unit on Linux. In user mode the
// unit is installed per-user; in system mode machine-wide.
type AutostartManager struct {
	mode     ExecMode
	dataDir  string
	unitPath string
}

// NewAutostartManager creates an autostart manager for the detected mode.
func NewAutostartManager(config *ExecModeConfig) *AutostartManager {
	return &AutostartManager{
		mode:     config.Mode,
		dataDir:  config.DataDir,
		unitPath: autostartUnitPath(config.Mode),
	}
}

func autostartUnitPath(mode ExecMode) string {
	if runtime.GOOS == "darwin" {
		if mode == ExecModeSystem {
			return filepath.Join("/Library/LaunchDaemons", autostartLabel+".plist")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library/LaunchAgents", autostartLabel+".plist")
	}
	if mode == ExecModeSystem {
		return "/etc/systemd/system/focusguard.service"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config/systemd/user/focusguard.service")
}

// UnitPath returns where the service definition is (or would be) written.
func (m *AutostartManager) UnitPath() string {
	return m.unitPath
}

// IsInstalled reports whether the service definition exists.
func (m *AutostartManager) IsInstalled() bool {
	_, err := os.Stat(m.unitPath)
	return err == nil
}

// Install writes the service definition for execPath and activates it.
func (m *AutostartManager) Install(execPath string) error {
	content, err := m.renderUnit(execPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.unitPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(m.unitPath, content, 0644); err != nil {
		return err
	}
	return m.activate()
}

// Uninstall deactivates the service and removes its definition. Removing
// an uninstalled service is a no-op.
func (m *AutostartManager) Uninstall() error {
	if !m.IsInstalled() {
		return nil
	}
	m.deactivate()
	return os.Remove(m.unitPath)
}

// NeedsUpdate reports whether the installed definition differs from what
// would be written for execPath.
func (m *AutostartManager) NeedsUpdate(execPath string) bool {
	if !m.IsInstalled() {
		return false
	}
	current, err := os.ReadFile(m.unitPath)
	if err != nil {
		return true
	}
	expected, err := m.renderUnit(execPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}

func (m *AutostartManager) renderUnit(execPath string) ([]byte, error) {
	tmplStr := systemdTemplate
	if runtime.GOOS == "darwin" {
		tmplStr = launchdTemplate
	}

	params := autostartParams{
		Label:          autostartLabel,
		ExecutablePath: execPath,
		LogPath:        filepath.Join(m.dataDir, "daemon.out.log"),
		ErrorLogPath:   filepath.Join(m.dataDir, "daemon.err.log"),
		WantedBy:       "default.target",
	}
	if m.mode == ExecModeSystem {
		params.WantedBy = "multi-user.target"
	}

	tmpl, err := template.New("autostart").Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("parsing service template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("rendering service definition: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *AutostartManager) activate() error {
	if runtime.GOOS == "darwin" {
		return exec.Command("launchctl", "load", m.unitPath).Run()
	}
	if m.mode == ExecModeSystem {
		if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
			return err
		}
		return exec.Command("systemctl", "enable", "--now", "focusguard.service").Run()
	}
	if err := exec.Command("systemctl", "--user", "daemon-reload").Run(); err != nil {
		return err
	}
	return exec.Command("systemctl", "--user", "enable", "--now", "focusguard.service").Run()
}

func (m *AutostartManager) deactivate() {
	if runtime.GOOS == "darwin" {
		_ = exec.Command("launchctl", "unload", m.unitPath).Run()
		return
	}
	if m.mode == ExecModeSystem {
		_ = exec.Command("systemctl", "disable", "--now", "focusguard.service").Run()
		return
	}
	_ = exec.Command("systemctl", "--user", "disable", "--now", "focusguard.service").Run()
}
