//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/staffboard/staffboard/internal/testutil"
	"github.com/stretchr/testify/require"
)

var userSeq atomic.Int64

// testUser holds the credentials of a user created through the API.
type testUser struct {
	ID       string
	Username string
	Email    string
	Password string
}

// registerTestUser registers a user with the given role using the superuser
// client and returns its credentials. Usernames and emails are unique per call.
func registerTestUser(t *testing.T, su *testutil.Client, role string) testUser {
	t.Helper()

	n := userSeq.Add(1)
	user := testUser{
		Username: fmt.Sprintf("user%d", n),
		Email:    fmt.Sprintf("user%d@example.com", n),
		Password: fmt.Sprintf("password-%d", n),
	}

	resp, err := su.POST("/api/v1/auth/register", map[string]string{
		"name":     "Test",
		"surname":  fmt.Sprintf("User%d", n),
		"username": user.Username,
		"email":    user.Email,
		"password": user.Password,
		"role":     role,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	user.ID = result.Data.ID
	return user
}

// loginAs registers nothing; it returns a client authenticated as the user.
func loginAs(t *testing.T, user testUser) *testutil.Client {
	t.Helper()
	client := newTestClient(t)
	client.LoginAs(t, user.Email, user.Password)
	return client
}

// grantPermission toggles a permission on a user as the superuser.
func grantPermission(t *testing.T, su *testutil.Client, userID, permission string) {
	t.Helper()

	resp, err := su.PATCH("/api/v1/users/"+userID+"/permissions", map[string]string{
		"permission": permission,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

// publicationJSON mirrors the publication API representation.
type publicationJSON struct {
	ID          string `json:"id"`
	AuthorID    string `json:"author_id"`
	Area        string `json:"area"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Status      string `json:"status"`
	LikeCount   int    `json:"like_count"`
}

// commentJSON mirrors the comment API representation.
type commentJSON struct {
	ID            string `json:"id"`
	PublicationID string `json:"publication_id"`
	AuthorID      string `json:"author_id"`
	Text          string `json:"text"`
	Status        string `json:"status"`
	LikeCount     int    `json:"like_count"`
}

// createTestPublication creates a publication in the given area and returns it.
func createTestPublication(t *testing.T, client *testutil.Client, area string) publicationJSON {
	t.Helper()

	resp, err := client.POST("/api/v1/publications", map[string]string{
		"area":        area,
		"description": "integration test publication",
		"image":       "https://files.example.com/photo.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data publicationJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// addTestComment posts a comment on a publication and returns it.
func addTestComment(t *testing.T, client *testutil.Client, publicationID, text string) commentJSON {
	t.Helper()

	resp, err := client.POST("/api/v1/publications/"+publicationID+"/comments", map[string]string{
		"text": text,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data commentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}
