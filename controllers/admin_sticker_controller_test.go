package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/models"
	"github.com/stickerhub/sticker-shop-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminStickerRouter(user *models.User) *gin.Engine {
	router := setupTestRouter()
	admin := router.Group("/api/v1/admin")
	admin.GET("/stickers", asAdmin(user, AdminListStickers)...)
	admin.POST("/stickers", asAdmin(user, CreateSticker)...)
	admin.PUT("/stickers/:id", asAdmin(user, UpdateSticker)...)
	admin.POST("/stickers/:id/deactivate", asAdmin(user, DeactivateSticker)...)
	admin.POST("/stickers/:id/activate", asAdmin(user, ActivateSticker)...)
	admin.DELETE("/stickers/:id", asAdmin(user, DeleteSticker)...)
	admin.POST("/categories", asAdmin(user, CreateCategory)...)
	admin.DELETE("/categories/:id", asAdmin(user, DeleteCategory)...)
	return router
}

func TestCreateSticker(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin", true)
	testutil.CreateCategory(t, env.db, "Animals")
	router := setupAdminStickerRouter(admin)

	t.Run("Valid sticker", func(t *testing.T) {
		w := performMultipart(t, router, "POST", "/api/v1/admin/stickers", map[string]string{
			"name":        "Cat",
			"category":    "Animals",
			"price":       "1.50",
			"stock":       "12",
			"description": "A sleepy cat",
		}, pngFile("cat.png"))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := responseData(t, w)
		assert.Equal(t, "Cat", data["name"])
		assert.Equal(t, "1.5", data["price"])
		assert.Equal(t, float64(12), data["stock"])
		assert.Equal(t, true, data["is_active"])
		assert.Equal(t, false, data["is_custom"])
		assert.Contains(t, data["image_url"], "stickers/mock_cat.png")
		assert.True(t, env.images.ImageExists("stickers/mock_cat.png"))
	})

	t.Run("Inactive sticker without stock", func(t *testing.T) {
		w := performMultipart(t, router, "POST", "/api/v1/admin/stickers", map[string]string{
			"name":      "Dog",
			"category":  "Animals",
			"price":     "2",
			"is_active": "false",
		}, pngFile("dog.png"))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := responseData(t, w)
		assert.Equal(t, float64(0), data["stock"])
		assert.Equal(t, false, data["is_active"])
	})

	tests := []struct {
		name           string
		fields         map[string]string
		file           *multipartFile
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Missing name",
			fields:         map[string]string{"category": "Animals", "price": "1.00"},
			file:           pngFile("noname.png"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "Missing price",
			fields:         map[string]string{"name": "Owl", "category": "Animals"},
			file:           pngFile("owl.png"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "Malformed price",
			fields:         map[string]string{"name": "Owl", "category": "Animals", "price": "cheap"},
			file:           pngFile("owl.png"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_PRICE",
		},
		{
			name:           "Negative price",
			fields:         map[string]string{"name": "Owl", "category": "Animals", "price": "-1"},
			file:           pngFile("owl-negative.png"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_PRICE",
		},
		{
			name:           "Malformed stock",
			fields:         map[string]string{"name": "Owl", "category": "Animals", "price": "1", "stock": "lots"},
			file:           pngFile("owl.png"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_STOCK",
		},
		{
			name:           "Missing image",
			fields:         map[string]string{"name": "Owl", "category": "Animals", "price": "1"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_FILE",
		},
		{
			name:           "Unknown category",
			fields:         map[string]string{"name": "Owl", "category": "Birds", "price": "1"},
			file:           pngFile("owl-birds.png"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "UNKNOWN_CATEGORY",
		},
		{
			name:           "Duplicate name",
			fields:         map[string]string{"name": "Cat", "category": "Animals", "price": "1"},
			file:           pngFile("cat-again.png"),
			expectedStatus: http.StatusConflict,
			expectedCode:   "DUPLICATE_STICKER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performMultipart(t, router, "POST", "/api/v1/admin/stickers", tt.fields, tt.file)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedCode, errorCode(t, w))
			if tt.file != nil {
				assert.False(t, env.images.ImageExists("stickers/mock_"+tt.file.filename), "rejected uploads are discarded")
			}
		})
	}

	t.Run("Customers are rejected", func(t *testing.T) {
		customer := testutil.CreateUser(t, env.db, "alice", false)
		w := performMultipart(t, setupAdminStickerRouter(customer), "POST", "/api/v1/admin/stickers",
			map[string]string{"name": "Fox", "category": "Animals", "price": "1"}, pngFile("fox.png"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.False(t, env.images.ImageExists("stickers/mock_fox.png"))
	})
}

func TestUpdateSticker(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin", true)
	animals := testutil.CreateCategory(t, env.db, "Animals")
	testutil.CreateCategory(t, env.db, "Space")
	cat := testutil.CreateSticker(t, env.db, animals, "Cat", "1.50", 5)
	testutil.CreateSticker(t, env.db, animals, "Dog", "2.00", 5)
	router := setupAdminStickerRouter(admin)
	path := fmt.Sprintf("/api/v1/admin/stickers/%d", cat.ID)

	t.Run("Partial update keeps other fields", func(t *testing.T) {
		w := performMultipart(t, router, "PUT", path, map[string]string{"price": "1.75"}, nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := responseData(t, w)
		assert.Equal(t, "1.75", data["price"])
		assert.Equal(t, "Cat", data["name"])
		assert.Equal(t, float64(5), data["stock"])
		assert.Equal(t, cat.ImageKey, data["image_key"])
	})

	t.Run("Move to another category", func(t *testing.T) {
		w := performMultipart(t, router, "PUT", path, map[string]string{"category": "Space", "stock": "8"}, nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		data := responseData(t, w)
		assert.Equal(t, "Space", data["category"].(map[string]interface{})["name"])
		assert.Equal(t, float64(8), data["stock"])
	})

	t.Run("New image replaces the old one", func(t *testing.T) {
		first := performMultipart(t, router, "PUT", path, nil, pngFile("cat-v1.png"))
		require.Equal(t, http.StatusOK, first.Code, first.Body.String())
		require.True(t, env.images.ImageExists("stickers/mock_cat-v1.png"))

		w := performMultipart(t, router, "PUT", path, nil, pngFile("cat-v2.png"))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "stickers/mock_cat-v2.png", responseData(t, w)["image_key"])
		assert.True(t, env.images.ImageExists("stickers/mock_cat-v2.png"))
		assert.False(t, env.images.ImageExists("stickers/mock_cat-v1.png"), "replaced image is deleted")
	})

	tests := []struct {
		name           string
		path           string
		fields         map[string]string
		file           *multipartFile
		expectedStatus int
		expectedCode   string
	}{
		{name: "Duplicate name", path: path, fields: map[string]string{"name": "Dog"}, expectedStatus: http.StatusConflict, expectedCode: "DUPLICATE_STICKER"},
		{name: "Blank name", path: path, fields: map[string]string{"name": "  "}, expectedStatus: http.StatusBadRequest, expectedCode: "VALIDATION_ERROR"},
		{name: "Negative stock", path: path, fields: map[string]string{"stock": "-3"}, expectedStatus: http.StatusBadRequest, expectedCode: "INVALID_STOCK"},
		{name: "Unknown category", path: path, fields: map[string]string{"category": "Food"}, file: pngFile("cat-food.png"), expectedStatus: http.StatusBadRequest, expectedCode: "UNKNOWN_CATEGORY"},
		{name: "Unknown sticker", path: "/api/v1/admin/stickers/9999", fields: map[string]string{"price": "1"}, expectedStatus: http.StatusNotFound, expectedCode: "STICKER_NOT_FOUND"},
		{name: "Invalid ID", path: "/api/v1/admin/stickers/abc", fields: map[string]string{"price": "1"}, expectedStatus: http.StatusBadRequest, expectedCode: "INVALID_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performMultipart(t, router, "PUT", tt.path, tt.fields, tt.file)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedCode, errorCode(t, w))
			if tt.file != nil {
				assert.False(t, env.images.ImageExists("stickers/mock_"+tt.file.filename))
			}
		})
	}

	assert.True(t, env.images.ImageExists("stickers/mock_cat-v2.png"), "failed updates keep the current image")
}

func TestStickerActivation(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin", true)
	animals := testutil.CreateCategory(t, env.db, "Animals")
	cat := testutil.CreateSticker(t, env.db, animals, "Cat", "1.50", 5)
	router := setupAdminStickerRouter(admin)

	w := performRequest(router, "POST", fmt.Sprintf("/api/v1/admin/stickers/%d/deactivate", cat.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, responseData(t, w)["is_active"])
	assert.False(t, testutil.ReloadSticker(t, env.db, cat.ID).IsActive)

	t.Run("Admin listing includes inactive stickers", func(t *testing.T) {
		w := performRequest(router, "GET", "/api/v1/admin/stickers", nil)

		require.Equal(t, http.StatusOK, w.Code)
		stickers := responseList(t, w)
		require.Len(t, stickers, 1)
		assert.Equal(t, "Cat", stickers[0].(map[string]interface{})["name"])
	})

	w = performRequest(router, "POST", fmt.Sprintf("/api/v1/admin/stickers/%d/activate", cat.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, responseData(t, w)["is_active"])
	assert.True(t, testutil.ReloadSticker(t, env.db, cat.ID).IsActive)

	w = performRequest(router, "POST", "/api/v1/admin/stickers/9999/activate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "STICKER_NOT_FOUND", errorCode(t, w))
}

func TestDeleteSticker(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin", true)
	alice := testutil.CreateUser(t, env.db, "alice", false)
	animals := testutil.CreateCategory(t, env.db, "Animals")
	cat := testutil.CreateSticker(t, env.db, animals, "Cat", "1.50", 5)
	dog := testutil.CreateSticker(t, env.db, animals, "Dog", "2.00", 5)
	placeCashOrder(t, env, alice, dog, 1)
	router := setupAdminStickerRouter(admin)

	tests := []struct {
		name            string
		sticker         *models.Sticker
		expectedDeleted bool
		expectedMessage string
	}{
		{name: "Without order history", sticker: cat, expectedDeleted: true, expectedMessage: "Sticker deleted"},
		{name: "With order history", sticker: dog, expectedDeleted: false, expectedMessage: "Sticker has order history and was deactivated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "DELETE", fmt.Sprintf("/api/v1/admin/stickers/%d", tt.sticker.ID), nil)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			response := decodeResponse(t, w)
			assert.Equal(t, tt.expectedMessage, response["message"])
			assert.Equal(t, tt.expectedDeleted, response["data"].(map[string]interface{})["deleted"])

			var count int64
			require.NoError(t, env.db.Model(&models.Sticker{}).Where("id = ?", tt.sticker.ID).Count(&count).Error)
			if tt.expectedDeleted {
				assert.Zero(t, count)
			} else {
				assert.Equal(t, int64(1), count)
				assert.False(t, testutil.ReloadSticker(t, env.db, tt.sticker.ID).IsActive)
			}
		})
	}

	t.Run("Unknown sticker", func(t *testing.T) {
		w := performRequest(router, "DELETE", fmt.Sprintf("/api/v1/admin/stickers/%d", cat.ID), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "STICKER_NOT_FOUND", errorCode(t, w))
	})
}

func TestAdminCategories(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateUser(t, env.db, "admin", true)
	router := setupAdminStickerRouter(admin)

	w := performRequest(router, "POST", "/api/v1/admin/categories", map[string]interface{}{"name": "Animals"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	animalsID := uint(responseData(t, w)["id"].(float64))

	w = performRequest(router, "POST", "/api/v1/admin/categories", map[string]interface{}{"name": "Space"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	spaceID := uint(responseData(t, w)["id"].(float64))

	var animals models.Category
	require.NoError(t, env.db.First(&animals, animalsID).Error)
	testutil.CreateSticker(t, env.db, &animals, "Cat", "1.50", 5)

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{name: "Duplicate category", method: "POST", path: "/api/v1/admin/categories", body: map[string]interface{}{"name": "Animals"}, expectedStatus: http.StatusConflict, expectedCode: "DUPLICATE_NAME"},
		{name: "Missing name", method: "POST", path: "/api/v1/admin/categories", body: map[string]interface{}{}, expectedStatus: http.StatusBadRequest, expectedCode: "VALIDATION_ERROR"},
		{name: "Delete category in use", method: "DELETE", path: fmt.Sprintf("/api/v1/admin/categories/%d", animalsID), expectedStatus: http.StatusUnprocessableEntity, expectedCode: "CATEGORY_IN_USE"},
		{name: "Delete empty category", method: "DELETE", path: fmt.Sprintf("/api/v1/admin/categories/%d", spaceID), expectedStatus: http.StatusOK},
		{name: "Delete unknown category", method: "DELETE", path: fmt.Sprintf("/api/v1/admin/categories/%d", spaceID), expectedStatus: http.StatusNotFound, expectedCode: "CATEGORY_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
			}
		})
	}
}
