package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"safesupport/internal/auth/models"
	"safesupport/internal/contacts/handler/mocks"
	dErrors "safesupport/pkg/domain-errors"
	authmw "safesupport/pkg/platform/middleware/auth"
	"safesupport/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type ContactsHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	handler *Handler
}

func TestContactsHandlerSuite(t *testing.T) {
	suite.Run(t, new(ContactsHandlerSuite))
}

func (s *ContactsHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = New(s.service, authmw.Guard{Logger: logger}, logger)
}

func (s *ContactsHandlerSuite) TestList() {
	s.service.EXPECT().List(gomock.Any(), "u1").Return([]models.TrustedContact{}, nil)

	req := testutil.NewRequestWithBody(s.T(), http.MethodGet, "/api/trusted-contacts", "")
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleList), testutil.WithUserID(req, "u1"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.JSONEq(`{"trustedContacts":[]}`, rr.Body.String())
}

func (s *ContactsHandlerSuite) TestReplace() {
	s.Run("saves the list", func() {
		s.SetupTest()
		in := []models.TrustedContact{{Name: "Mum", Phone: "+15550001"}}
		s.service.EXPECT().Replace(gomock.Any(), "u1", in).
			Return([]models.TrustedContact{{ID: "c1", Name: "Mum", Phone: "+15550001"}}, nil)

		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/trusted-contacts",
			`{"trustedContacts":[{"name":"Mum","phone":"+15550001"}]}`)
		rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleReplace), testutil.WithUserID(req, "u1"))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.JSONEq(`{"ok":true,"trustedContacts":[{"id":"c1","name":"Mum","phone":"+15550001"}]}`, rr.Body.String())
	})

	for _, body := range []string{`{}`, `{"trustedContacts":null}`, `{"trustedContacts":{"name":"Mum"}}`, `{"trustedContacts":"Mum"}`} {
		s.Run("rejects "+body, func() {
			s.SetupTest()
			req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/trusted-contacts", body)
			rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleReplace), testutil.WithUserID(req, "u1"))

			testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
			s.JSONEq(`{"error":"bad_request","message":"trustedContacts must be an array"}`, rr.Body.String())
		})
	}

	s.Run("unknown user", func() {
		s.SetupTest()
		s.service.EXPECT().Replace(gomock.Any(), "ghost", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "User not found"))

		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/trusted-contacts", `{"trustedContacts":[]}`)
		rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleReplace), testutil.WithUserID(req, "ghost"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}
