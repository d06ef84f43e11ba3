package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matic113/freelance-platform-sub003/internal/api"
	"github.com/matic113/freelance-platform-sub003/internal/api/middleware"
	"github.com/matic113/freelance-platform-sub003/internal/client"
	"github.com/matic113/freelance-platform-sub003/internal/config"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/repository"
	"github.com/matic113/freelance-platform-sub003/internal/service"
	"github.com/matic113/freelance-platform-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "cli-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	url      string
	requests atomic.Int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	contracts := repository.NewSQLiteContractRepo(database)
	milestones := repository.NewSQLiteMilestoneRepo(database)
	payments := repository.NewSQLitePaymentRequestRepo(database)

	router := api.NewRouter(api.Deps{
		Contracts:  service.NewContractService(contracts, milestones, payments, uow, domain.LifecyclePolicy{}, nil),
		Milestones: service.NewMilestoneService(contracts, milestones, uow, domain.LifecyclePolicy{}, nil),
		Payments:   service.NewPaymentService(contracts, milestones, payments, uow, nil, nil),
		JWTSecret:  secret,
	})

	s := &testServer{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	s.url = ts.URL
	return s
}

func testConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "freelance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: "+secret+"\n"), 0o600))
	return path
}

func tokenFor(t *testing.T, actor domain.Actor) string {
	t.Helper()
	tok, _, err := middleware.GenerateToken(actor.UserID, actor.Role, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// as runs a command against s on behalf of actor.
func (s *testServer) as(t *testing.T, actor domain.Actor, args ...string) (string, error) {
	t.Helper()
	args = append(args, "--env-file=", "--url", s.url, "--token", tokenFor(t, actor))
	return executeCmd(t, &App{}, args...)
}

func createdContractID(t *testing.T, out string) string {
	t.Helper()
	first := strings.SplitN(out, "\n", 2)[0]
	fields := strings.Fields(first)
	require.Len(t, fields, 3, "unexpected create output: %q", first)
	return fields[2]
}

func TestTokenCmd_MintsVerifiableToken(t *testing.T) {
	out, err := executeCmd(t, &App{}, "token", "--user", "u-7", "--role", "freelancer", "--config", testConfig(t), "--env-file=")
	require.NoError(t, err)

	tok := strings.SplitN(out, "\n", 2)[0]
	actor, err := client.ActorFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-7", actor.UserID)
	assert.Equal(t, domain.RoleFreelancer, actor.Role)
	assert.Contains(t, out, "expires ")
}

func TestTokenCmd_UnknownRole(t *testing.T) {
	_, err := executeCmd(t, &App{}, "token", "--user", "u-7", "--role", "admin", "--env-file=")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestServeCmd(t *testing.T) {
	var got config.Config
	app := &App{Serve: func(ctx context.Context, cfg config.Config) error {
		got = cfg
		return nil
	}}
	_, err := executeCmd(t, app, "serve", "--addr", ":9191", "--config", testConfig(t), "--env-file=")
	require.NoError(t, err)
	assert.Equal(t, ":9191", got.Server.Addr)
	assert.Equal(t, secret, got.Auth.JWTSecret)
}

func TestServeCmd_Unavailable(t *testing.T) {
	_, err := executeCmd(t, &App{}, "serve", "--env-file=")
	assert.Error(t, err)
}

func TestLifecycleThroughCommands(t *testing.T) {
	s := newTestServer(t)

	out, err := s.as(t, testutil.Client, "contract", "create",
		"--freelancer", testutil.FreelancerID,
		"--title", "Website",
		"--total", "1000",
		"--start", "2026-01-01",
		"--end", "2026-06-30",
		"--milestone", "Design=600",
		"--milestone", "Build=400",
	)
	require.NoError(t, err)
	contractID := createdContractID(t, out)
	assert.Contains(t, out, "WEBSITE")
	prefix := contractID[:8]

	out, err = s.as(t, testutil.Freelancer, "contract", "accept", prefix)
	require.NoError(t, err)
	assert.Contains(t, out, "● Active")

	out, err = s.as(t, testutil.Freelancer, "milestone", "start", prefix, "#0")
	require.NoError(t, err)
	assert.Contains(t, out, `"Design" is ▶ In Progress`)

	out, err = s.as(t, testutil.Freelancer, "milestone", "complete", prefix, "#0")
	require.NoError(t, err)
	assert.Contains(t, out, `"Design" is ● Completed`)

	out, err = s.as(t, testutil.Freelancer, "payment", "request", prefix, "#0", "--description", "design done")
	require.NoError(t, err)
	assert.Contains(t, out, "600.00 USD is ○ Pending")
	paymentPrefix := strings.Fields(out)[2]

	out, err = s.as(t, testutil.Client, "payment", "approve", paymentPrefix, "--contract", prefix)
	require.NoError(t, err)
	assert.Contains(t, out, "● Approved")

	out, err = s.as(t, testutil.Client, "payment", "list", prefix)
	require.NoError(t, err)
	assert.Contains(t, out, "● Approved")
	assert.Contains(t, out, "600.00 USD")

	out, err = s.as(t, testutil.Client, "contract", "show", contractID)
	require.NoError(t, err)
	assert.Contains(t, out, "Design")
	assert.Contains(t, out, "Build")
}

func TestPaymentReject_MissingReasonMakesNoRequest(t *testing.T) {
	s := newTestServer(t)

	_, err := s.as(t, testutil.Client, "payment", "reject", "any-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, s.requests.Load())
}

func TestMilestoneAdd_OnlyClientMayAdd(t *testing.T) {
	s := newTestServer(t)
	out, err := s.as(t, testutil.Client, "contract", "create",
		"--freelancer", testutil.FreelancerID, "--title", "Logo", "--total", "300",
		"--start", "2026-01-01", "--end", "2026-02-01")
	require.NoError(t, err)
	contractID := createdContractID(t, out)

	out, err = s.as(t, testutil.Client, "milestone", "add", contractID, "--title", "Sketches", "--amount", "300")
	require.NoError(t, err)
	assert.Contains(t, out, `"Sketches" is ○ Pending`)

	before := s.requests.Load()
	_, err = s.as(t, testutil.Freelancer, "milestone", "add", contractID, "--title", "Extra", "--amount", "50")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
	// only the resolving list call reaches the server
	assert.Equal(t, before+1, s.requests.Load())
}

func TestContractCreate_BadMilestoneFlag(t *testing.T) {
	_, err := executeCmd(t, &App{}, "contract", "create", "--env-file=",
		"--freelancer", "f", "--title", "x", "--total", "10",
		"--start", "2026-01-01", "--end", "2026-02-01",
		"--milestone", "no-amount")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title=amount")
}

func TestParseMilestoneFlag(t *testing.T) {
	m, err := parseMilestoneFlag("Phase = 1 = 250.50")
	require.NoError(t, err)
	assert.Equal(t, "Phase = 1", m.Title)
	assert.Equal(t, "250.5", m.Amount.String())

	_, err = parseMilestoneFlag("=5")
	assert.Error(t, err)
	_, err = parseMilestoneFlag("Phase=abc")
	assert.Error(t, err)
}

func TestMatchID(t *testing.T) {
	ids := []string{"abc123", "abd456", "xyz789"}

	id, err := matchID("contract", ids, "xyz789")
	require.NoError(t, err)
	assert.Equal(t, "xyz789", id)

	id, err = matchID("contract", ids, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = matchID("contract", ids, "ab")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = matchID("contract", ids, "zzz")
	assert.ErrorContains(t, err, "not found")
}
