//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".."           // relative to ./e2e
const mainPkgRel = "./cmd/tempapp" // main package

const mosquittoConf = "listener 1883\nallow_anonymous true\n"

func TestSmoke_Healthz(t *testing.T) {
	repoRoot := repoRootPath(t)
	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	cmd := startServe(t, bin, repoRoot, addr,
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "temps.db"),
	)

	client := &http.Client{Timeout: 2 * time.Second}
	body := waitForHealth(t, client, "http://"+addr+"/healthz", 10*time.Second, func(h map[string]string) bool {
		return h["status"] == "ok"
	})
	if body["mqtt"] != "disabled" {
		t.Fatalf("body.mqtt=%q want=%q", body["mqtt"], "disabled")
	}

	resp, err := client.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(page), "Inga mätningar ännu") {
		t.Fatalf("GET / status=%d, want empty dashboard", resp.StatusCode)
	}

	stopServer(t, cmd)
}

// TestSmoke_FetchIngest runs a fetch batch against a fake home automation
// server and checks that the dashboard ingests it over MQTT.
func TestSmoke_FetchIngest(t *testing.T) {
	repoRoot := repoRootPath(t)
	broker, port := startMosquitto(t)
	ha := startHomeAssistant(t)
	bin := buildBinary(t, repoRoot)
	addr := pickFreeAddr(t)

	mqttEnv := []string{
		"MQTT_BROKER=" + broker,
		"MQTT_PORT=" + port,
		"MQTT_TOPIC_PREFIX=e2e/temps",
	}

	cmd := startServe(t, bin, repoRoot, addr, append(mqttEnv,
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "serve.db"),
	)...)

	client := &http.Client{Timeout: 2 * time.Second}
	waitForHealth(t, client, "http://"+addr+"/healthz", 20*time.Second, func(h map[string]string) bool {
		return h["mqtt"] == "connected"
	})

	fetch := exec.Command(bin, "fetch")
	fetch.Dir = repoRoot
	fetch.Env = append(os.Environ(), append(mqttEnv,
		"APP_ENV=prod",
		"SQLITE_PATH="+filepath.Join(t.TempDir(), "fetch.db"),
		"HA_BASE_URL="+ha.URL,
		"HA_TOKEN=e2e-token",
		"TIMEZONE=UTC",
	)...)
	if out, err := fetch.CombinedOutput(); err != nil {
		t.Fatalf("fetch failed: %v\n%s", err, out)
	}

	want := []string{"Våning 1", "Våning 2", "Våning 3"}
	deadline := time.Now().Add(10 * time.Second)
	var floors []string
	for time.Now().Before(deadline) {
		floors = getFloors(t, client, "http://"+addr+"/api/v1/floors")
		if slices.Equal(floors, want) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !slices.Equal(floors, want) {
		t.Fatalf("floors=%v want=%v", floors, want)
	}

	resp, err := client.Get("http://" + addr + "/api/v1/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	defer resp.Body.Close()
	var status struct {
		Tiles []struct {
			Floor string `json:"floor"`
			Label string `json:"label"`
		} `json:"tiles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(status.Tiles) != 3 || status.Tiles[0].Label != "20,5" {
		t.Fatalf("tiles=%+v", status.Tiles)
	}

	stopServer(t, cmd)
}

func startMosquitto(t *testing.T) (host, port string) {
	t.Helper()

	confDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(confDir, "mosquitto.conf"), []byte(mosquittoConf), 0o644); err != nil {
		t.Fatalf("write mosquitto.conf: %v", err)
	}

	ctx := context.Background()
	mqttPort := nat.Port("1883/tcp")
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Binds = append(hc.Binds, confDir+":/mosquitto/config:ro")
		},
		WaitingFor: wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err = c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, mapped.Port()
}

func startHomeAssistant(t *testing.T) *httptest.Server {
	t.Helper()

	states := map[string]string{
		"temperature_10": `{"state":"20.46","attributes":{"friendly_name":"Våning 1"}}`,
		"temperature_13": `{"state":"21.9","attributes":{"friendly_name":"Våning 2"}}`,
		"temperature_16": `{"state":"23.2","attributes":{"friendly_name":"Våning 3"}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer e2e-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, ok := states[strings.TrimPrefix(r.URL.Path, "/api/states/sensor.")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func startServe(t *testing.T, bin, repoRoot, addr string, env ...string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(bin, "serve")
	cmd.Dir = repoRoot
	cmd.Env = append(os.Environ(),
		"APP_ENV=dev",
		"LOG_LEVEL=info",
		"HTTP_ADDR="+addr,
		"DB_DRIVER=sqlite3",
		"TIMEZONE=UTC",
	)
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
	})
	return cmd
}

func getFloors(t *testing.T, client *http.Client, url string) []string {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	var floors []string
	if err := json.NewDecoder(resp.Body).Decode(&floors); err != nil {
		return nil
	}
	return floors
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot string) string {
	t.Helper()

	tmp := t.TempDir()
	out := filepath.Join(tmp, "tempapp")

	build := exec.Command("go", "build", "-o", out, mainPkgRel)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build failed: %v\n%s", err, string(b))
	}

	return out
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForHealth(t *testing.T, client *http.Client, url string, timeout time.Duration, ready func(map[string]string) bool) map[string]string {
	t.Helper()

	deadline := time.Now().Add(timeout)
	var last map[string]string
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			var body map[string]string
			decodeErr := json.NewDecoder(resp.Body).Decode(&body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK && decodeErr == nil {
				last = body
				if ready(body) {
					return body
				}
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not ready after %s: %s (last %v)", timeout, url, last)
	return nil
}

func stopServer(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("server did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("server exited non-zero: %v", err)
			}
			t.Fatalf("server wait error: %v", err)
		}
	}
}
