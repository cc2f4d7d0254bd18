//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lkacz/PersonalFreedom-sub000/internal/bypass"
	"github.com/lkacz/PersonalFreedom-sub000/internal/category"
	"github.com/lkacz/PersonalFreedom-sub000/internal/domain"
	"github.com/lkacz/PersonalFreedom-sub000/internal/infra"
	"github.com/lkacz/PersonalFreedom-sub000/internal/usecase"
)

type elevatedChecker struct{}

func (elevatedChecker) IsElevated() bool { return true }

type noProcessManager struct{}

func (noProcessManager) IsRunning(pid int) bool { return false }
func (noProcessManager) CurrentPID() int        { return os.Getpid() }

var _ = Describe("Enforcement Engine", func() {
	var (
		tmpDir    string
		hostsPath string
		engine    *usecase.Engine
		sessions  *infra.FileSessionStore
		patcher   *infra.HostsFilePatcher
		server    *bypass.Server
		stats     *bypass.Stats
	)

	hostsContent := func() string {
		data, err := os.ReadFile(hostsPath)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "focusguard-integration-*")
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()

		hostsPath = filepath.Join(tmpDir, "hosts")
		err = os.WriteFile(hostsPath, []byte("127.0.0.1 localhost\n::1 localhost\n"), 0644)
		Expect(err).NotTo(HaveOccurred())
		patcher = infra.NewHostsFilePatcherWithPath(hostsPath, logger)

		configStore := infra.NewConfigStore(tmpDir, logger)
		cfg := domain.DefaultConfig()
		cfg.Blacklist = []string{"example.com"}
		Expect(configStore.Save(cfg, false)).To(Succeed())

		sessions = infra.NewSessionStoreWithPath(
			filepath.Join(tmpDir, "session.json"), noProcessManager{}, logger)
		stats = bypass.NewStatsWithPath(filepath.Join(tmpDir, "stats.json"), logger)
		server = bypass.NewServer(stats, logger)

		engine, err = usecase.NewEngine(configStore, patcher, sessions, server,
			stats, category.NewRegistry(), elevatedChecker{}, noProcessManager{}, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = server.Stop()
		os.RemoveAll(tmpDir)
	})

	Describe("a full session lifecycle", func() {
		It("blocks, records bypass attempts, and unblocks", func() {
			By("starting a timed session")
			count, err := engine.Start(30 * time.Minute)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
			Expect(engine.State()).To(Equal(domain.StateBlocking))

			By("writing exactly one redirect line inside the markers")
			content := hostsContent()
			Expect(content).To(ContainSubstring(infra.BlockStartMarker))
			Expect(content).To(ContainSubstring(infra.BlockEndMarker))
			Expect(strings.Count(content, "127.0.0.1 example.com")).To(Equal(1))

			By("persisting the session state")
			persisted, err := sessions.Current()
			Expect(err).NotTo(HaveOccurred())
			Expect(persisted).NotTo(BeNil())
			Expect(persisted.Mode).To(Equal(domain.ModeFull))

			By("recording a redirected request against the blocked host")
			port := engine.Status().ListenerPort
			if port != 0 {
				req, reqErr := http.NewRequest(http.MethodGet,
					fmt.Sprintf("http://127.0.0.1:%d/", port), nil)
				Expect(reqErr).NotTo(HaveOccurred())
				req.Host = "example.com"
				resp, doErr := http.DefaultClient.Do(req)
				Expect(doErr).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(engine.Statistics().TotalAttempts).To(Equal(1))
			}

			By("stopping the session")
			Expect(engine.Stop("", true)).To(Succeed())
			Expect(engine.State()).To(Equal(domain.StateIdle))

			By("restoring the hosts file")
			content = hostsContent()
			Expect(content).NotTo(ContainSubstring(infra.BlockStartMarker))
			Expect(content).NotTo(ContainSubstring("example.com"))
			Expect(content).To(ContainSubstring("localhost"))

			By("deleting the session state")
			persisted, err = sessions.Current()
			Expect(err).NotTo(HaveOccurred())
			Expect(persisted).To(BeNil())

			By("leaving nothing to recover")
			orphan, err := engine.DetectOrphan()
			Expect(err).NotTo(HaveOccurred())
			Expect(orphan).To(BeNil())
		})
	})

	Describe("crash recovery", func() {
		It("detects and cleans up after an unclean shutdown", func() {
			By("simulating a crashed run")
			_, err := patcher.Apply([]string{"example.com"})
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions.Begin(domain.SessionState{
				SessionID: "crashed-run",
				StartTime: time.Now().Add(-time.Hour),
				Mode:      domain.ModeFull,
				PID:       999999,
			})).To(Succeed())

			By("surfacing the orphan")
			orphan, err := engine.DetectOrphan()
			Expect(err).NotTo(HaveOccurred())
			Expect(orphan).NotTo(BeNil())
			Expect(orphan.SessionID).To(Equal("crashed-run"))

			By("recovering explicitly")
			Expect(engine.RecoverFromCrash()).To(Succeed())
			Expect(hostsContent()).NotTo(ContainSubstring("example.com"))
			Expect(engine.State()).To(Equal(domain.StateIdle))
		})
	})

	Describe("the strict-mode password", func() {
		It("gates early stops but never recovery", func() {
			Expect(engine.SetPassword("focus-hard")).To(Succeed())

			_, err := engine.Start(0)
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.Stop("nope", false)).NotTo(Succeed())
			Expect(engine.State()).To(Equal(domain.StateBlocking))

			Expect(engine.Stop("focus-hard", false)).To(Succeed())
			Expect(engine.State()).To(Equal(domain.StateIdle))
		})
	})
})
