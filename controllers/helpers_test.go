package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/middleware"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/services"
	"github.com/stickerhub/sticker-shop-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv is an in-memory shop with mocked image storage, mail and payment gateway
type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	images   *services.MockImageService
	mailer   *services.MockMailer
	notifier *services.Notifier
	gateway  *services.MockPaymentGateway
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		db:      testutil.NewTestDB(t),
		cfg:     testutil.TestConfig(),
		images:  services.NewMockImageService(),
		mailer:  services.NewMockMailer(),
		gateway: services.NewMockPaymentGateway(),
	}
	env.notifier = services.NewNotifier(env.mailer)
	testutil.UseConfig(t, env.cfg)

	previousImages := services.GetImageService()
	previousNotifier := services.GetNotifier()
	previousGateway := services.GetPaymentGateway()
	previousCache := services.GetCatalogCache()
	services.SetImageService(env.images)
	services.SetNotifier(env.notifier)
	services.SetPaymentGateway(env.gateway)
	services.SetCatalogCache(nil)
	t.Cleanup(func() {
		env.notifier.Wait()
		services.SetImageService(previousImages)
		services.SetNotifier(previousNotifier)
		services.SetPaymentGateway(previousGateway)
		services.SetCatalogCache(previousCache)
	})

	return env
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// asUser returns the middleware chain of an authenticated route, followed by handler
func asUser(user *models.User, handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	return append(testutil.AuthenticatedAs(user), handlers...)
}

// asAdmin returns the middleware chain of an admin route, followed by handler
func asAdmin(user *models.User, handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	chain := append(testutil.AuthenticatedAs(user), middleware.RequireAdmin())
	return append(chain, handlers...)
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		payload, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewBuffer(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// multipartFile is a file part of a multipart request
type multipartFile struct {
	field    string
	filename string
	content  []byte
}

func performMultipart(t *testing.T, router *gin.Engine, method, path string, fields map[string]string, file *multipartFile) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if file != nil {
		part, err := writer.CreateFormFile(file.field, file.filename)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func pngFile(name string) *multipartFile {
	return &multipartFile{field: "image", filename: name, content: []byte("\x89PNG\r\n\x1a\nfake image data")}
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "response should be valid JSON: %s", w.Body.String())
	return response
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	data, ok := decodeResponse(t, w)["data"].(map[string]interface{})
	require.True(t, ok, "response should have a data object: %s", w.Body.String())
	return data
}

func responseList(t *testing.T, w *httptest.ResponseRecorder) []interface{} {
	t.Helper()

	data, ok := decodeResponse(t, w)["data"].([]interface{})
	require.True(t, ok, "response should have a data array: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	response := decodeResponse(t, w)
	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "response should have an error object: %s", w.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

// addToCart puts quantity units of sticker in the user's cart through the cart service
func addToCart(t *testing.T, env *testEnv, user *models.User, sticker *models.Sticker, quantity int) *models.Order {
	t.Helper()

	var cart *models.Order
	var err error
	for i := 0; i < quantity; i++ {
		cart, err = services.NewCartService(env.db).AddToCart(context.Background(), user.ID, sticker.ID)
		require.NoError(t, err)
	}
	return cart
}

// placeCashOrder checks out a cart of quantity units of sticker with the cash method
func placeCashOrder(t *testing.T, env *testEnv, user *models.User, sticker *models.Sticker, quantity int) *models.Order {
	t.Helper()

	addToCart(t, env, user, sticker, quantity)
	result, err := orderService().Checkout(context.Background(), user.ID, services.CheckoutRequest{
		PaymentMethod: models.PaymentMethodCash,
		Email:         user.Email,
	})
	require.NoError(t, err)
	return result.Order
}
