package integration

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/routes"
	"github.com/stickerhub/sticker-shop-api/services"
	"github.com/stickerhub/sticker-shop-api/tests/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// shopSuite runs every test against the full API router on a fresh in-memory database
type shopSuite struct {
	suite.Suite
	db       *gorm.DB
	cfg      *config.Config
	router   *gin.Engine
	images   *services.MockImageService
	gateway  *services.MockPaymentGateway
	mailer   *services.MockMailer
	notifier *services.Notifier

	previousImages   services.ImageService
	previousNotifier *services.Notifier
	previousGateway  services.PaymentGateway
}

// SetupTest runs before each test
func (s *shopSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	s.db = testutil.NewTestDB(s.T())
	s.cfg = testutil.TestConfig()
	testutil.UseConfig(s.T(), s.cfg)

	s.images = services.NewMockImageService()
	s.gateway = services.NewMockPaymentGateway()
	s.mailer = services.NewMockMailer()
	s.notifier = services.NewNotifier(s.mailer)

	s.previousImages = services.GetImageService()
	s.previousNotifier = services.GetNotifier()
	s.previousGateway = services.GetPaymentGateway()
	services.SetImageService(s.images)
	services.SetNotifier(s.notifier)
	services.SetPaymentGateway(s.gateway)

	s.router = s.newRouter(s.cfg)
}

// TearDownTest runs after each test
func (s *shopSuite) TearDownTest() {
	s.notifier.Wait()
	services.SetImageService(s.previousImages)
	services.SetNotifier(s.previousNotifier)
	services.SetPaymentGateway(s.previousGateway)
}

func (s *shopSuite) newRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	routes.RegisterAPI(router.Group("/api/v1"), cfg)
	return router
}

func (s *shopSuite) createUser(username string, admin bool) *models.User {
	return testutil.CreateUser(s.T(), s.db, username, admin)
}

func (s *shopSuite) tokenFor(user *models.User) string {
	token, _, err := services.NewTokenService(s.cfg).Issue(user.Subject)
	s.Require().NoError(err)
	return token
}

func (s *shopSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		req = httptest.NewRequest(method, path, bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *shopSuite) upload(method, path, token string, fields map[string]string, filename string) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		s.Require().NoError(writer.WriteField(name, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("image", filename)
		s.Require().NoError(err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nintegration"))
		s.Require().NoError(err)
	}
	s.Require().NoError(writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *shopSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), "response should be valid JSON: %s", w.Body.String())
	return response
}

func (s *shopSuite) data(w *httptest.ResponseRecorder) map[string]interface{} {
	data, ok := s.decode(w)["data"].(map[string]interface{})
	s.Require().True(ok, "response should have a data object: %s", w.Body.String())
	return data
}

func (s *shopSuite) list(w *httptest.ResponseRecorder) []interface{} {
	data, ok := s.decode(w)["data"].([]interface{})
	s.Require().True(ok, "response should have a data array: %s", w.Body.String())
	return data
}

func (s *shopSuite) errorCode(w *httptest.ResponseRecorder) string {
	errObj, ok := s.decode(w)["error"].(map[string]interface{})
	s.Require().True(ok, "response should have an error object: %s", w.Body.String())
	code, _ := errObj["code"].(string)
	return code
}
