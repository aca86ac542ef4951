package listing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

func TestFacebookItem_DefaultsRetailerID(t *testing.T) {
	item := FacebookItem(testDraft(), "https://www.fitcheck.fashion")

	assert.Equal(t, "fitcheck-12", item.RetailerID)
	assert.Equal(t, "https://www.fitcheck.fashion", item.WebsiteLink)
	assert.Equal(t, "Wool coat", item.Name)
	assert.Equal(t, 80.0, item.Price)
}

func TestEbayRequest(t *testing.T) {
	req, err := EbayRequest(testDraft())
	require.NoError(t, err)

	assert.Equal(t, "USED_EXCELLENT", req.Condition)
	assert.Equal(t, []string{"https://cdn.example.com/coat.jpg"}, req.ImageURLs)
	assert.Equal(t, "57988", req.CategoryID)
	assert.Len(t, req.ShippingOptions, 1)

	d := testDraft()
	d.Ebay = nil
	_, err = EbayRequest(d)
	assert.ErrorIs(t, err, ErrEbayDetailsRequired)
}

func TestBackendPoster_EndToEnd(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch r.Method + " " + r.URL.Path {
		case "GET /ebay/account/policies":
			w.Write([]byte(`{"policies":[]}`))
		case "POST /resale_listings/":
			var rec models.ResaleListing
			json.NewDecoder(r.Body).Decode(&rec)
			rec.ID = 40
			json.NewEncoder(w).Encode(rec)
		case "POST /ebay/listing":
			assert.Equal(t, "5", r.URL.Query().Get("user_id"))
			w.Write([]byte(`{"message":"ok","sku":"s","offer_id":"o","listing_id":"1234"}`))
		case "PATCH /resale_listings/12":
			var upd models.ResaleListingUpdate
			json.NewDecoder(r.Body).Decode(&upd)
			if assert.NotNil(t, upd.URL) {
				assert.Equal(t, "https://www.ebay.com/itm/1234", *upd.URL)
			}
			w.Write([]byte(`{"id":40,"status":"active"}`))
		default:
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := services.NewBackendClient(server.URL, time.Second, "")
	poster := NewBackendPoster(client, "tok-9", "https://www.fitcheck.fashion", "https://www.ebay.com/itm/")

	w := NewWorkflow(poster, quietOptions(FallbackFacebook))
	require.NoError(t, w.SubmitForm(testDraft()))
	require.NoError(t, w.SelectPlatforms(context.Background(), 5, []models.Platform{models.PlatformEbay}))

	out, err := w.Post(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://www.ebay.com/itm/1234", out.Platforms[0].URL)
	assert.Equal(t, 40, out.Platforms[0].ListingID)
	assert.Equal(t, []string{
		"GET /ebay/account/policies",
		"POST /resale_listings/",
		"POST /ebay/listing",
		"PATCH /resale_listings/12",
	}, paths)
}
