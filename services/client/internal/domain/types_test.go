package domain

import (
	"encoding/json"
	"testing"
)

func TestComment_WireFormat(t *testing.T) {
	raw := `{"comment_id":"c2","ust_yorum_id":"c1","forum_id":"f1","acan_kisi_id":"u1",
		"acan_kisi":{"username":"ayse","profil_resmi_url":"https://cdn/x.png"},
		"icerik":"merhaba","foto_urls":["https://cdn/a.jpg"],
		"acilis_tarihi":"2024-03-01T10:00:00Z","begeni_sayisi":3,"begenmeme_sayisi":1}`
	var c Comment
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.ID != "c2" || c.ParentID != "c1" || c.ThreadID != "f1" {
		t.Fatalf("structural fields wrong: %+v", c)
	}
	if c.Author == nil || c.Author.Username != "ayse" {
		t.Fatalf("author not decoded: %+v", c.Author)
	}
	if c.LikeCount != 3 || c.DislikeCount != 1 || len(c.Attachments) != 1 {
		t.Fatalf("counters/attachments wrong: %+v", c)
	}
	if c.IsTopLevel() {
		t.Fatal("reply must not be top-level")
	}
}

func TestComment_NullParentIsTopLevel(t *testing.T) {
	var c Comment
	if err := json.Unmarshal([]byte(`{"comment_id":"c1","ust_yorum_id":null,"forum_id":"f1","icerik":"x","acilis_tarihi":"2024-03-01T10:00:00Z"}`), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.IsTopLevel() {
		t.Fatal("null parent must be top-level")
	}
}

func TestPatch_MergeOnlyPresentFields(t *testing.T) {
	orig := Comment{ID: "c1", ThreadID: "f1", Body: "old", LikeCount: 5, DislikeCount: 2}

	var p CommentPatch
	if err := json.Unmarshal([]byte(`{"comment_id":"c1","begeni_sayisi":0}`), &p); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	got := p.Merge(orig)
	if got.LikeCount != 0 {
		t.Fatalf("explicit zero must be applied, got %d", got.LikeCount)
	}
	if got.Body != "old" || got.DislikeCount != 2 {
		t.Fatalf("absent fields must be kept: %+v", got)
	}
}

func TestUser_IDAlias(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id":"u1","username":"ayse"}`), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.ID != "u1" || u.Username != "ayse" {
		t.Fatalf("unexpected user: %+v", u)
	}

	var v User
	_ = json.Unmarshal([]byte(`{"user_id":"u2","id":"ignored"}`), &v)
	if v.ID != "u2" {
		t.Fatalf("user_id must win over id, got %q", v.ID)
	}

	b, _ := json.Marshal(u)
	if string(b) != `{"user_id":"u1","username":"ayse"}` {
		t.Fatalf("unexpected encoding: %s", b)
	}
}
