package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stickerhub/sticker-shop-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalogRouter() *gin.Engine {
	router := setupTestRouter()
	router.GET("/api/v1/stickers", ListStickers)
	router.GET("/api/v1/stickers/:id", GetSticker)
	router.GET("/api/v1/categories", ListCategories)
	router.GET("/api/v1/categories/:name/stickers", ListCategoryStickers)
	return router
}

func TestListStickers(t *testing.T) {
	env := setupTestEnv(t)
	animals := testutil.CreateCategory(t, env.db, "Animals")
	food := testutil.CreateCategory(t, env.db, "Food")
	testutil.CreateSticker(t, env.db, animals, "Cat", "1.50", 5)
	testutil.CreateSticker(t, env.db, animals, "Dog", "0.99", 10)
	testutil.CreateSticker(t, env.db, food, "Hotdog", "1.25", 3)
	hidden := testutil.CreateSticker(t, env.db, food, "Pizza", "1.00", 3)
	require.NoError(t, env.db.Model(hidden).Update("is_active", false).Error)

	router := setupCatalogRouter()

	tests := []struct {
		name          string
		path          string
		expectedNames []string
	}{
		{name: "All active stickers by name", path: "/api/v1/stickers", expectedNames: []string{"Cat", "Dog", "Hotdog"}},
		{name: "Search is case-insensitive", path: "/api/v1/stickers?search=DOG", expectedNames: []string{"Dog", "Hotdog"}},
		{name: "Filter by category", path: "/api/v1/stickers?category=Food", expectedNames: []string{"Hotdog"}},
		{name: "Search and category combined", path: "/api/v1/stickers?search=dog&category=Animals", expectedNames: []string{"Dog"}},
		{name: "Category stickers", path: "/api/v1/categories/Animals/stickers", expectedNames: []string{"Cat", "Dog"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "GET", tt.path, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var names []string
			for _, item := range responseList(t, w) {
				sticker := item.(map[string]interface{})
				names = append(names, sticker["name"].(string))
				assert.NotEmpty(t, sticker["image_url"], "image URL should be resolved")
			}
			assert.Equal(t, tt.expectedNames, names)
		})
	}

	t.Run("Unknown category", func(t *testing.T) {
		w := performRequest(router, "GET", "/api/v1/categories/Nope/stickers", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "CATEGORY_NOT_FOUND", errorCode(t, w))
	})
}

func TestGetSticker(t *testing.T) {
	env := setupTestEnv(t)
	animals := testutil.CreateCategory(t, env.db, "Animals")
	cat := testutil.CreateSticker(t, env.db, animals, "Cat", "1.50", 5)
	hidden := testutil.CreateSticker(t, env.db, animals, "Owl", "2.00", 5)
	require.NoError(t, env.db.Model(hidden).Update("is_active", false).Error)

	router := setupCatalogRouter()

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedCode   string
	}{
		{name: "Active sticker", path: fmt.Sprintf("/api/v1/stickers/%d", cat.ID), expectedStatus: http.StatusOK},
		{name: "Inactive sticker is hidden", path: fmt.Sprintf("/api/v1/stickers/%d", hidden.ID), expectedStatus: http.StatusNotFound, expectedCode: "STICKER_NOT_FOUND"},
		{name: "Unknown sticker", path: "/api/v1/stickers/9999", expectedStatus: http.StatusNotFound, expectedCode: "STICKER_NOT_FOUND"},
		{name: "Invalid ID", path: "/api/v1/stickers/abc", expectedStatus: http.StatusBadRequest, expectedCode: "INVALID_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, "GET", tt.path, nil)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
				return
			}

			data := responseData(t, w)
			assert.Equal(t, "Cat", data["name"])
			assert.Equal(t, "1.5", data["price"])
			assert.Equal(t, "Animals", data["category"].(map[string]interface{})["name"])
		})
	}
}

func TestListCategories(t *testing.T) {
	env := setupTestEnv(t)
	testutil.CreateCategory(t, env.db, "Space")
	testutil.CreateCategory(t, env.db, "Animals")

	router := setupCatalogRouter()
	w := performRequest(router, "GET", "/api/v1/categories", nil)

	require.Equal(t, http.StatusOK, w.Code)
	categories := responseList(t, w)
	require.Len(t, categories, 2)
	assert.Equal(t, "Animals", categories[0].(map[string]interface{})["name"])
	assert.Equal(t, "Space", categories[1].(map[string]interface{})["name"])
}
