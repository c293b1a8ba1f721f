//go:build e2e

package auth_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/roomstay/pkg/authsdk"
)

/*
 * Common constants and helpers for the auth service end-to-end tests:
 * container setup, reading codes from the service log, and assertions.
 */

const (
	testImageName = "roomstay-auth-test:latest"

	testTokenSecret = "e2e-secret-0123456789abcdef0123456789"
	testPassword    = "correct horse battery"
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building auth service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up auth service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

// relaxedLimits lifts the HTTP throttles so tests can make many rapid
// requests. The per-email code limit still applies.
var relaxedLimits = map[string]string{
	"RATELIMIT_STRICT_REQUESTS":   "1000",
	"RATELIMIT_STRICT_BURST":      "1000",
	"RATELIMIT_MODERATE_REQUESTS": "1000",
	"RATELIMIT_MODERATE_BURST":    "1000",
	"RATELIMIT_LENIENT_REQUESTS":  "1000",
	"RATELIMIT_LENIENT_BURST":     "1000",
}

type authService struct {
	container testcontainers.Container
	client    *authsdk.SDKClient
}

// setupAuthContainer starts the service with the log notifier, so codes
// can be read back from the container output. overrides are applied on
// top of the base environment; pass relaxedLimits for most tests.
func setupAuthContainer(t *testing.T, overrides ...map[string]string) *authService {
	t.Helper()
	ctx := context.Background()

	envVars := map[string]string{
		"ENV":               "dev",
		"AUTH_ISSUER":       "roomstay-e2e",
		"AUTH_TOKEN_SECRET": testTokenSecret,
		"NOTIFY_DRIVER":     "log",
		"LOG_LEVEL":         "info",
		"LOG_FORMAT":        "json",
	}
	for _, o := range overrides {
		for k, v := range o {
			envVars[k] = v
		}
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          envVars,
			WaitingFor: wait.ForHTTP("/livez").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	return &authService{
		container: container,
		client:    authsdk.NewSDKClient(fmt.Sprintf("http://%s:%s", host, mappedPort.Port())),
	}
}

// latestCode waits for the log notifier to print a code for email and
// purpose, and returns the most recent one.
func (s *authService) latestCode(t *testing.T, email, purpose string) string {
	t.Helper()

	var code string
	require.Eventually(t, func() bool {
		code = s.scanCode(t, email, purpose)
		return code != ""
	}, 10*time.Second, 100*time.Millisecond, "no %s code logged for %s", purpose, email)
	return code
}

// nextCode waits for a code different from previous.
func (s *authService) nextCode(t *testing.T, email, purpose, previous string) string {
	t.Helper()

	var code string
	require.Eventually(t, func() bool {
		code = s.scanCode(t, email, purpose)
		return code != "" && code != previous
	}, 10*time.Second, 100*time.Millisecond, "no new %s code logged for %s", purpose, email)
	return code
}

func (s *authService) scanCode(t *testing.T, email, purpose string) string {
	t.Helper()

	logs, err := s.container.Logs(context.Background())
	require.NoError(t, err)
	defer logs.Close()

	var code string
	sc := bufio.NewScanner(logs)
	for sc.Scan() {
		var line struct {
			Msg     string `json:"msg"`
			Email   string `json:"email"`
			Purpose string `json:"purpose"`
			Code    string `json:"code"`
		}
		if json.Unmarshal(sc.Bytes(), &line) != nil {
			continue
		}
		if line.Msg == "verification code" && line.Email == email && line.Purpose == purpose {
			code = line.Code
		}
	}
	return code
}

// signupAndVerify creates an account through the emailed-code flow.
func (s *authService) signupAndVerify(t *testing.T, username, email string) *authsdk.AccountResponse {
	t.Helper()
	ctx := t.Context()

	require.NoError(t, s.client.Signup(ctx, authsdk.SignupRequest{
		Email:    email,
		Username: username,
		Password: testPassword,
	}))

	acct, err := s.client.VerifySignup(ctx, email, s.latestCode(t, email, "SIGNUP"))
	require.NoError(t, err)
	return acct
}

// assertAPIError checks err carries the given error code and HTTP status.
func assertAPIError(t *testing.T, err error, code string, status int) {
	t.Helper()
	require.Error(t, err)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code, "unexpected error: %v", err)
	require.Equal(t, status, apiErr.StatusCode)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
