package fulfillment

import (
	"strings"
	"testing"
)

// order_items.photo_id is TEXT (it also carries the session-pack sentinel),
// while photos.id is a UUID; without the cast Postgres rejects the join.
func TestDigitalItemsJoinCastsPhotoKey(t *testing.T) {
	if !strings.Contains(digitalItemsSQL, "p.id::text = oi.photo_id") {
		t.Fatalf("digital items join must cast the uuid photo key to text:\n%s", digitalItemsSQL)
	}
	if !strings.Contains(digitalItemsSQL, "oi.kind = 'digital'") {
		t.Fatalf("archive must only package digital lines:\n%s", digitalItemsSQL)
	}
}
