package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	identityservice "aliaspay/internal/identity/service"
	identitystore "aliaspay/internal/identity/store"
	"aliaspay/internal/platform/middleware"
	pointsstore "aliaspay/internal/points/store"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
	"aliaspay/pkg/platform/tx"
	"aliaspay/pkg/testutil"
)

const (
	aliceAddr = domain.Address("11000000000000000000000000000000000000000000000000000000000000aa")
	bobAddr   = domain.Address("22000000000000000000000000000000000000000000000000000000000000bb")
)

// tokenValidator treats the bearer token itself as the caller's hex address,
// which keeps handler tests independent of real JWT signing.
type tokenValidator struct{}

func (tokenValidator) ValidateToken(token string) (*middleware.Claims, error) {
	addr, err := domain.ParseAddress(token)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &middleware.Claims{Address: addr}, nil
}

type IdentityHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

func (s *IdentityHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	identityStore := identitystore.NewMemory()
	pointsStore := pointsstore.NewMemory()
	runner := tx.NewMemoryRunner(identityStore, pointsStore)
	service := identityservice.New(identityStore, pointsStore, runner,
		identityservice.WithLogger(logger))

	s.router = chi.NewRouter()
	New(service, logger, tokenValidator{}).Register(s.router)
}

func (s *IdentityHandlerSuite) register(handle string, authority domain.Address) {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/identities",
		CreateIdentityRequest{Handle: handle})
	req.Header.Set("Authorization", "Bearer "+authority.String())
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *IdentityHandlerSuite) TestCreate() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/identities",
		CreateIdentityRequest{
			Handle:  "alice",
			Details: DetailsRequest{Bio: "hello"},
		})
	req.Header.Set("Authorization", "Bearer "+aliceAddr.String())

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	resp := testutil.UnmarshalResponse[IdentityResponse](s.T(), rr)
	s.Equal("alice", resp.Handle)
	s.Equal(aliceAddr.String(), resp.Authority)
	s.Equal(aliceAddr.String(), resp.MainAddress)
	s.Equal("hello", resp.Details.Bio)

	s.Run("duplicate handle conflicts", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/identities",
			CreateIdentityRequest{Handle: "alice"})
		req.Header.Set("Authorization", "Bearer "+bobAddr.String())

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeAlreadyExists))
	})

	s.Run("invalid handle is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/identities",
			CreateIdentityRequest{Handle: "Not Valid"})
		req.Header.Set("Authorization", "Bearer "+bobAddr.String())

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeInvalidHandle))
	})

	s.Run("missing token is unauthorized", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/identities",
			CreateIdentityRequest{Handle: "carol"})

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *IdentityHandlerSuite) TestResolveAndWhois() {
	s.register("alice", aliceAddr)

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/identities/alice", nil)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[IdentityResponse](s.T(), rr)
	s.Equal("alice", resp.Handle)

	s.Run("unknown handle", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/identities/nobody", nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("whois finds the handle", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/addresses/"+aliceAddr.String(), nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[WhoisResponse](s.T(), rr)
		s.Equal("alice", resp.Handle)
	})

	s.Run("whois rejects malformed addresses", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/addresses/zzzz", nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *IdentityHandlerSuite) TestSetDetails() {
	s.register("alice", aliceAddr)

	req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/v1/identities/alice",
		DetailsRequest{Bio: "updated", Twitter: "alice_tw"})
	req.Header.Set("Authorization", "Bearer "+aliceAddr.String())

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[IdentityResponse](s.T(), rr)
	s.Equal("updated", resp.Details.Bio)
	s.Equal("alice_tw", resp.Details.Twitter)

	s.Run("oversized bio is clipped", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/v1/identities/alice",
			DetailsRequest{Bio: strings.Repeat("x", 300)})
		req.Header.Set("Authorization", "Bearer "+aliceAddr.String())

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[IdentityResponse](s.T(), rr)
		s.Len(resp.Details.Bio, 256)
	})

	s.Run("stranger is forbidden", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/v1/identities/alice",
			DetailsRequest{Bio: "hijacked"})
		req.Header.Set("Authorization", "Bearer "+bobAddr.String())

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeNotAuthorized))
	})
}

func (s *IdentityHandlerSuite) TestSetMainAddress() {
	s.register("alice", aliceAddr)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/v1/identities/alice/main-address",
		SetMainAddressRequest{Address: bobAddr.String()})
	req.Header.Set("Authorization", "Bearer "+aliceAddr.String())

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[IdentityResponse](s.T(), rr)
	s.Equal(bobAddr.String(), resp.MainAddress)
	s.Equal(aliceAddr.String(), resp.Authority)

	s.Run("malformed address is rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/v1/identities/alice/main-address",
			SetMainAddressRequest{Address: "not-hex"})
		req.Header.Set("Authorization", "Bearer "+aliceAddr.String())

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *IdentityHandlerSuite) TestTransferAuthority() {
	s.register("alice", aliceAddr)

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/v1/identities/alice/authority",
		TransferAuthorityRequest{Authority: bobAddr.String()})
	req.Header.Set("Authorization", "Bearer "+aliceAddr.String())

	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[IdentityResponse](s.T(), rr)
	s.Equal(bobAddr.String(), resp.Authority)

	s.Run("old authority is locked out", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/v1/identities/alice",
			DetailsRequest{Bio: "still mine?"})
		req.Header.Set("Authorization", "Bearer "+aliceAddr.String())

		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})
}
