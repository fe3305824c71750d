package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/versachat/versachat-api/internal/domain"
	"github.com/versachat/versachat-api/internal/media"
	"github.com/versachat/versachat-api/internal/provider"
)

type fakeStorage struct {
	uploaded []struct {
		bucket      string
		objectName  string
		contentType string
		size        int64
	}
	url string
	err error
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	f.uploaded = append(f.uploaded, struct {
		bucket      string
		objectName  string
		contentType string
		size        int64
	}{bucket: bucket, objectName: objectName, contentType: contentType, size: size})
	if f.err != nil {
		return "", f.err
	}
	if f.url != "" {
		return f.url, nil
	}
	return "https://storage/" + objectName, nil
}

type fakeProcessor struct {
	uploads []media.Upload
	result  *media.Result
	err     error
}

func (f *fakeProcessor) Process(ctx context.Context, upload media.Upload, maxDimension int) (*media.Result, error) {
	f.uploads = append(f.uploads, upload)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &media.Result{Bytes: []byte("img"), ContentType: "image/jpeg", Width: 96, Height: 96}, nil
}

type fakeHTTPClient struct {
	requests []*http.Request
	status   int
	body     string
	err      error
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(bytes.NewReader([]byte(f.body))),
		ContentLength: int64(len(f.body)),
		Header:        http.Header{"Content-Type": []string{"image/jpeg"}},
	}, nil
}

func strPtr(s string) *string { return &s }

func googleProfile() *provider.Profile {
	return &provider.Profile{
		ID:          "google-sub-1",
		Email:       "g@example.com",
		DisplayName: strPtr("Gee"),
		AvatarURL:   strPtr("https://lh3.googleusercontent.com/a/pic"),
	}
}

func TestLinkReturnsExistingLinkedUser(t *testing.T) {
	userID := uuid.New()
	external := "google-sub-1"
	users := &fakeUserRepo{findByExternalIDResult: &domain.User{ID: userID, Email: "g@example.com", ExternalID: &external, Verified: true}}
	linker := NewIdentityLinker(users, nil, nil, "")

	got, err := linker.Link(context.Background(), googleProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != userID {
		t.Fatalf("expected existing user %s, got %s", userID, got.ID)
	}
	if users.findByEmailInput != "" {
		t.Fatal("external id hit should skip the email lookup")
	}
	if users.attachInput.externalID != "" || users.createExternalInput.externalID != "" {
		t.Fatal("expected no attach or create for an already linked profile")
	}
	if len(users.lastLoginIDs) != 1 || users.lastLoginIDs[0] != userID {
		t.Fatal("expected last login to be recorded")
	}
}

func TestLinkAttachesToEmailMatch(t *testing.T) {
	userID := uuid.New()
	external := "google-sub-1"
	users := &fakeUserRepo{
		findByEmailResult: &domain.User{ID: userID, Email: "g@example.com", Verified: false},
		attachResult:      &domain.User{ID: userID, Email: "g@example.com", ExternalID: &external, Verified: true},
	}
	linker := NewIdentityLinker(users, nil, nil, "")

	got, err := linker.Link(context.Background(), googleProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.attachInput.id != userID || users.attachInput.externalID != "google-sub-1" {
		t.Fatalf("expected external id attached to %s, got %+v", userID, users.attachInput)
	}
	if users.attachInput.avatarURL == nil || *users.attachInput.avatarURL != *googleProfile().AvatarURL {
		t.Fatalf("expected provider avatar passed through without storage, got %v", users.attachInput.avatarURL)
	}
	if !got.Verified {
		t.Fatal("expected linked account to come back verified")
	}
	if users.createExternalInput.externalID != "" {
		t.Fatal("expected no new record for an email match")
	}
}

func TestLinkEmailMatchKeepsUserChosenAvatar(t *testing.T) {
	userID := uuid.New()
	external := "google-sub-1"
	users := &fakeUserRepo{
		findByEmailResult: &domain.User{ID: userID, Email: "g@example.com", AvatarURL: strPtr("https://cdn.example.com/me.png")},
		attachResult:      &domain.User{ID: userID, Email: "g@example.com", ExternalID: &external, Verified: true},
	}
	linker := NewIdentityLinker(users, nil, nil, "")

	if _, err := linker.Link(context.Background(), googleProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.attachInput.avatarURL != nil {
		t.Fatalf("user-chosen avatar must not be replaced, got %v", users.attachInput.avatarURL)
	}
}

func TestLinkCreatesNewUser(t *testing.T) {
	userID := uuid.New()
	external := "google-sub-1"
	profile := googleProfile()
	created := &domain.User{ID: userID, Email: "g@example.com", ExternalID: &external, Verified: true, AvatarURL: profile.AvatarURL}
	users := &fakeUserRepo{
		createExternalResult: created,
		updateProfileResult:  &domain.User{ID: userID, Email: "g@example.com", ExternalID: &external, Verified: true, AvatarURL: strPtr("https://storage/cached")},
	}
	storage := &fakeStorage{url: "https://storage/cached"}
	processor := &fakeProcessor{}
	linker := NewIdentityLinker(users, storage, processor, "avatars-bucket")
	linker.httpClient = &fakeHTTPClient{body: "jpegbytes"}

	got, err := linker.Link(context.Background(), profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := users.createExternalInput
	if in.email != "g@example.com" || in.externalID != "google-sub-1" {
		t.Fatalf("unexpected create input: %+v", in)
	}
	if in.displayName == nil || *in.displayName != "Gee" {
		t.Fatalf("expected display name forwarded, got %v", in.displayName)
	}
	if len(storage.uploaded) != 1 {
		t.Fatalf("expected one avatar upload, got %d", len(storage.uploaded))
	}
	up := storage.uploaded[0]
	if up.bucket != "avatars-bucket" || !strings.HasPrefix(up.objectName, "avatars/"+userID.String()+"/") {
		t.Fatalf("unexpected upload target: %+v", up)
	}
	if users.updateProfileInput.avatarURL == nil || *users.updateProfileInput.avatarURL != "https://storage/cached" {
		t.Fatalf("expected cached URL persisted, got %v", users.updateProfileInput.avatarURL)
	}
	if got.AvatarURL == nil || *got.AvatarURL != "https://storage/cached" {
		t.Fatalf("expected returned user to carry cached avatar, got %v", got.AvatarURL)
	}
}

func TestLinkCreateFailureSurfaces(t *testing.T) {
	users := &fakeUserRepo{createExternalErr: errors.New("insert failed")}
	linker := NewIdentityLinker(users, nil, nil, "")

	if _, err := linker.Link(context.Background(), googleProfile()); err == nil {
		t.Fatal("expected create failure to surface")
	}
}

// racingUserRepo misses the first external-id lookup and hits the second,
// mimicking a concurrent first login that wins the insert in between.
type racingUserRepo struct {
	fakeUserRepo
	winner      *domain.User
	lookupCalls int
}

func (r *racingUserRepo) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	r.lookupCalls++
	if r.lookupCalls == 1 {
		return nil, sql.ErrNoRows
	}
	return r.winner, nil
}

func TestLinkIsIdempotentUnderInsertRace(t *testing.T) {
	userID := uuid.New()
	external := "google-sub-1"
	users := &racingUserRepo{
		fakeUserRepo: fakeUserRepo{createExternalErr: &pgconn.PgError{Code: "23505"}},
		winner:       &domain.User{ID: userID, Email: "g@example.com", ExternalID: &external, Verified: true},
	}
	linker := NewIdentityLinker(users, nil, nil, "")

	got, err := linker.Link(context.Background(), googleProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != userID {
		t.Fatalf("expected race loser to resolve the winner's record, got %s", got.ID)
	}
	if users.lookupCalls != 2 {
		t.Fatalf("expected a second external-id lookup, got %d", users.lookupCalls)
	}
}

func TestLinkAvatarFetchFailureDoesNotFailLogin(t *testing.T) {
	userID := uuid.New()
	external := "google-sub-1"
	users := &fakeUserRepo{
		createExternalResult: &domain.User{ID: userID, Email: "g@example.com", ExternalID: &external, Verified: true},
	}
	storage := &fakeStorage{}
	linker := NewIdentityLinker(users, storage, &fakeProcessor{}, "avatars-bucket")
	linker.httpClient = &fakeHTTPClient{err: errors.New("network down")}

	got, err := linker.Link(context.Background(), googleProfile())
	if err != nil {
		t.Fatalf("avatar fetch failure must not fail the login: %v", err)
	}
	if got == nil || got.ID != userID {
		t.Fatalf("expected created user %s, got %+v", userID, got)
	}
	if len(storage.uploaded) != 0 {
		t.Fatal("expected no upload after a failed fetch")
	}
	if users.updateProfileInput.avatarURL == nil || *users.updateProfileInput.avatarURL != *googleProfile().AvatarURL {
		t.Fatalf("expected provider URL persisted as fallback, got %v", users.updateProfileInput.avatarURL)
	}
}

// nilUpdateRepo models a store whose profile update reports success without
// echoing the record.
type nilUpdateRepo struct {
	fakeUserRepo
}

func (r *nilUpdateRepo) UpdateProfile(ctx context.Context, id uuid.UUID, displayName *string, avatarURL *string) (*domain.User, error) {
	return nil, nil
}

func TestLinkToleratesNilUpdateProfileResult(t *testing.T) {
	userID := uuid.New()
	external := "google-sub-1"
	users := &nilUpdateRepo{
		fakeUserRepo: fakeUserRepo{
			createExternalResult: &domain.User{ID: userID, Email: "g@example.com", ExternalID: &external, Verified: true},
		},
	}
	linker := NewIdentityLinker(users, nil, nil, "")

	got, err := linker.Link(context.Background(), googleProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.ID != userID {
		t.Fatalf("expected created user %s to survive a nil update result, got %+v", userID, got)
	}
}

func TestShouldCacheAvatar(t *testing.T) {
	linker := NewIdentityLinker(&fakeUserRepo{}, nil, nil, "")
	cases := []struct {
		name     string
		existing *string
		picture  string
		want     bool
	}{
		{"no existing avatar", nil, "https://lh3.googleusercontent.com/a/pic", true},
		{"blank existing avatar", strPtr("   "), "https://lh3.googleusercontent.com/a/pic", true},
		{"same url", strPtr("https://lh3.googleusercontent.com/a/pic"), "https://lh3.googleusercontent.com/a/pic", true},
		{"stale provider avatar", strPtr("https://lh3.googleusercontent.com/a/old"), "https://lh3.googleusercontent.com/a/new", true},
		{"user-chosen avatar elsewhere", strPtr("https://cdn.example.com/me.png"), "https://lh3.googleusercontent.com/a/pic", false},
		{"empty picture", strPtr("https://cdn.example.com/me.png"), "", false},
		{"blank picture", nil, "   ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := linker.shouldCacheAvatar(tc.existing, tc.picture); got != tc.want {
				t.Fatalf("shouldCacheAvatar(%v, %q) = %v, want %v", tc.existing, tc.picture, got, tc.want)
			}
		})
	}
}
