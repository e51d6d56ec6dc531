package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/routes"
	"github.com/stickerhub/sticker-shop-api/services"
	"github.com/stickerhub/sticker-shop-api/tests/testutil"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// envelope is the JSON body every endpoint answers with
type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Message  string          `json:"message"`
	Warnings []string        `json:"warnings"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// acceptanceSuite runs a real HTTP server in front of the API for each test
type acceptanceSuite struct {
	suite.Suite
	server   *httptest.Server
	client   *resty.Client
	db       *gorm.DB
	cfg      *config.Config
	images   *services.MockImageService
	gateway  *services.MockPaymentGateway
	mailer   *services.MockMailer
	notifier *services.Notifier

	previousImages   services.ImageService
	previousNotifier *services.Notifier
	previousGateway  services.PaymentGateway
}

// SetupTest runs before each test
func (suite *acceptanceSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = testutil.NewTestDB(suite.T())
	suite.cfg = testutil.TestConfig()
	testutil.UseConfig(suite.T(), suite.cfg)

	suite.images = services.NewMockImageService()
	suite.gateway = services.NewMockPaymentGateway()
	suite.mailer = services.NewMockMailer()
	suite.notifier = services.NewNotifier(suite.mailer)

	suite.previousImages = services.GetImageService()
	suite.previousNotifier = services.GetNotifier()
	suite.previousGateway = services.GetPaymentGateway()
	services.SetImageService(suite.images)
	services.SetNotifier(suite.notifier)
	services.SetPaymentGateway(suite.gateway)

	router := gin.New()
	router.Use(gin.Recovery())
	routes.RegisterAPI(router.Group("/api/v1"), suite.cfg)

	suite.server = httptest.NewServer(router)
	suite.client = resty.New().SetBaseURL(suite.server.URL).SetTimeout(5 * time.Second)
}

// TearDownTest runs after each test
func (suite *acceptanceSuite) TearDownTest() {
	suite.server.Close()
	suite.notifier.Wait()

	services.SetImageService(suite.previousImages)
	services.SetNotifier(suite.previousNotifier)
	services.SetPaymentGateway(suite.previousGateway)
}

// signIn creates a user and returns a bearer token for it
func (suite *acceptanceSuite) signIn(username string, admin bool) string {
	return suite.tokenFor(testutil.CreateUser(suite.T(), suite.db, username, admin))
}

func (suite *acceptanceSuite) tokenFor(user *models.User) string {
	token, _, err := services.NewTokenService(suite.cfg).Issue(user.Subject)
	suite.Require().NoError(err)
	return token
}

func (suite *acceptanceSuite) newRequest(token string) *resty.Request {
	req := suite.client.R()
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

// expect executes req and requires the status code, returning the decoded envelope
func (suite *acceptanceSuite) expect(req *resty.Request, method, path string, status int) envelope {
	resp, err := req.Execute(method, path)
	suite.Require().NoError(err)
	suite.Require().Equal(status, resp.StatusCode(), "%s %s: %s", method, path, resp.String())

	var body envelope
	suite.Require().NoError(json.Unmarshal(resp.Body(), &body), "response should be valid JSON: %s", resp.String())
	suite.Equal(status < 400, body.Success)
	return body
}

// call sends an optional JSON body as token
func (suite *acceptanceSuite) call(token, method, path string, body interface{}, status int) envelope {
	req := suite.newRequest(token)
	if body != nil {
		req.SetBody(body)
	}
	return suite.expect(req, method, path, status)
}

// uploadImage sends a multipart form with an image in the "image" field
func (suite *acceptanceSuite) uploadImage(token, method, path string, fields map[string]string, filename string, status int) envelope {
	req := suite.newRequest(token).SetFormData(fields)
	if filename != "" {
		req.SetFileReader("image", filename, bytes.NewReader([]byte("\x89PNG\r\n\x1a\nacceptance")))
	}
	return suite.expect(req, method, path, status)
}

func (suite *acceptanceSuite) decodeData(body envelope, target interface{}) {
	suite.Require().NoError(json.Unmarshal(body.Data, target), "data: %s", string(body.Data))
}

func (suite *acceptanceSuite) errorCode(body envelope) string {
	suite.Require().NotNil(body.Error, "response should carry an error")
	return body.Error.Code
}
