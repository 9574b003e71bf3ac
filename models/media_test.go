package models

import "testing"

func TestRatingKey(t *testing.T) {
	tests := []struct {
		key      MediaKey
		expected string
	}{
		{MediaKey{ID: 550, MediaType: MediaTypeMovie}, "movie_550"},
		{MediaKey{ID: 1396, MediaType: MediaTypeTV}, "tv_1396"},
	}
	for _, test := range tests {
		if got := test.key.RatingKey(); got != test.expected {
			t.Errorf("RatingKey(%+v) = %q, expected %q", test.key, got, test.expected)
		}
	}
}

func TestListNameValid(t *testing.T) {
	for _, name := range []ListName{ListWatchlist, ListWatching, ListCompleted, ListFavorites} {
		if !name.Valid() {
			t.Errorf("%q should be valid", name)
		}
	}
	if ListName("queue").Valid() {
		t.Errorf("unknown list name should be invalid")
	}
}

func TestDocumentListAccess(t *testing.T) {
	doc := NewUserMediaDocument()
	rec := MediaRecord{ID: 42, MediaType: MediaTypeMovie, Title: "Brazil"}
	doc.SetList(ListFavorites, []MediaRecord{rec})

	if got := doc.List(ListFavorites); len(got) != 1 || got[0].Title != "Brazil" {
		t.Fatalf("unexpected list contents: %v", got)
	}
	if doc.List(ListName("queue")) != nil {
		t.Fatalf("unknown list should read as nil")
	}

	key := rec.Key()
	if !doc.Contains(ListFavorites, key) {
		t.Fatalf("expected favorites to contain %+v", key)
	}
	if doc.Contains(ListWatchlist, key) {
		t.Fatalf("other lists should not report the record")
	}
	// Same id under the other media type is a different title.
	if doc.Contains(ListFavorites, MediaKey{ID: 42, MediaType: MediaTypeTV}) {
		t.Fatalf("media type must participate in identity")
	}
}

func TestAccountPublic(t *testing.T) {
	account := Account{ID: "a1", Username: "alice", PasswordHash: "secret-hash"}
	public := account.Public()
	if public.PasswordHash != "" {
		t.Fatalf("public copy should strip the hash")
	}
	if account.PasswordHash != "secret-hash" {
		t.Fatalf("original must stay intact")
	}
}
