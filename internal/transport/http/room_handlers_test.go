package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/vovakirdan/studybud-server/internal/authz"
	"github.com/vovakirdan/studybud-server/internal/service/rooms"
	"github.com/vovakirdan/studybud-server/internal/store"
)

func createRoom(t *testing.T, env *testEnv, host *authz.Principal, name, topic string) *store.Room {
	t.Helper()

	room, err := env.rooms.CreateRoom(context.Background(), host, rooms.RoomInput{Name: name, Topic: topic})
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	return room
}

func roomPath(room *store.Room) string {
	return "/room/" + strconv.FormatInt(room.ID, 10)
}

func TestHome_ListsAndSearchesRooms(t *testing.T) {
	env := newTestEnv(t, 0)
	_, alice := env.register(t, "alice")
	createRoom(t, env, alice, "Python Basics", "Python")
	createRoom(t, env, alice, "Frontend Devs", "JavaScript")

	resp := env.do(http.MethodGet, "/", nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	if !strings.Contains(body, "Python Basics") || !strings.Contains(body, "Frontend Devs") {
		t.Errorf("expected both rooms listed")
	}
	if !strings.Contains(body, "2 rooms available") {
		t.Errorf("expected room count in listing")
	}

	resp = env.do(http.MethodGet, "/?q=java", nil, "")
	body = resp.Body.String()
	if strings.Contains(body, "Python Basics") || !strings.Contains(body, "Frontend Devs") {
		t.Errorf("expected search to keep only the JavaScript room")
	}
}

func TestRoom_NotFound(t *testing.T) {
	env := newTestEnv(t, 0)

	for _, path := range []string{"/room/999", "/room/abc", "/room/-1", "/no/such/page"} {
		if resp := env.do(http.MethodGet, path, nil, ""); resp.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, resp.Code)
		}
	}
}

func TestPostMessage_RequiresLogin(t *testing.T) {
	env := newTestEnv(t, 0)
	_, alice := env.register(t, "alice")
	room := createRoom(t, env, alice, "Python Basics", "Python")

	resp := env.do(http.MethodPost, roomPath(room), url.Values{"body": {"hi"}}, "")
	expectRedirect(t, resp, "/login?next="+url.QueryEscape(roomPath(room)))

	detail, err := env.rooms.Room(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if len(detail.Messages) != 0 {
		t.Fatalf("anonymous post must not create a message")
	}
}

func TestPostMessage_AddsParticipant(t *testing.T) {
	env := newTestEnv(t, 0)
	_, alice := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")
	room := createRoom(t, env, alice, "Python Basics", "Python")

	resp := env.do(http.MethodPost, roomPath(room), url.Values{"body": {"hi"}}, bobToken)
	expectRedirect(t, resp, roomPath(room))

	resp = env.do(http.MethodGet, roomPath(room), nil, bobToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	body := resp.Body.String()
	if !strings.Contains(body, "Participants (2)") {
		t.Errorf("expected host and poster as participants")
	}
	if !strings.Contains(body, "<p>hi</p>") {
		t.Errorf("expected rendered message body, got %s", body)
	}
}

func TestPostMessage_EmptyBody(t *testing.T) {
	env := newTestEnv(t, 0)
	aliceToken, alice := env.register(t, "alice")
	room := createRoom(t, env, alice, "Python Basics", "Python")

	resp := env.do(http.MethodPost, roomPath(room), url.Values{"body": {"   "}}, aliceToken)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Message cannot be empty") {
		t.Errorf("expected empty message error on the room page")
	}
}

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t, 0)
	aliceToken, alice := env.register(t, "alice")

	resp := env.do(http.MethodGet, "/room/create", nil, "")
	expectRedirect(t, resp, "/login?next="+url.QueryEscape("/room/create"))

	resp = env.do(http.MethodGet, "/room/create", nil, aliceToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}

	form := url.Values{"name": {"Python Basics"}, "topic": {"Python"}, "description": {"intro"}}
	resp = env.do(http.MethodPost, "/room/create", form, aliceToken)
	expectRedirect(t, resp, "/")

	listing, err := env.rooms.Browse(context.Background(), "")
	if err != nil {
		t.Fatalf("browse: %v", err)
	}
	if listing.RoomCount != 1 {
		t.Fatalf("expected 1 room, got %d", listing.RoomCount)
	}
	if got := listing.Rooms[0]; got.HostID != alice.UserID || got.TopicName != "Python" {
		t.Errorf("unexpected room: %+v", got)
	}

	resp = env.do(http.MethodPost, "/room/create", url.Values{"name": {"No Topic"}}, aliceToken)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for missing topic, got %d", resp.Code)
	}
}

func TestUpdateRoom_HostOnly(t *testing.T) {
	env := newTestEnv(t, 0)
	aliceToken, alice := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")
	room := createRoom(t, env, alice, "Python Basics", "Python")
	updatePath := roomPath(room) + "/update"

	resp := env.do(http.MethodGet, updatePath, nil, bobToken)
	if resp.Code != http.StatusForbidden || resp.Body.String() != notAllowedText {
		t.Fatalf("expected 403 %q, got %d %q", notAllowedText, resp.Code, resp.Body.String())
	}

	form := url.Values{"name": {"Hijacked"}, "topic": {"Rust"}}
	resp = env.do(http.MethodPost, updatePath, form, bobToken)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}

	resp = env.do(http.MethodGet, updatePath, nil, aliceToken)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Python Basics") {
		t.Fatalf("expected prefilled form for host, got %d", resp.Code)
	}

	form = url.Values{"name": {"Python Advanced"}, "topic": {"Python"}, "description": {"deep"}}
	resp = env.do(http.MethodPost, updatePath, form, aliceToken)
	expectRedirect(t, resp, "/")

	updated, err := env.store.GetRoomByID(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if updated.Name != "Python Advanced" || updated.Description != "deep" {
		t.Errorf("unexpected room after update: %+v", updated)
	}

	if resp := env.do(http.MethodGet, "/room/999/update", nil, aliceToken); resp.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for missing room, got %d", resp.Code)
	}
}

func TestDeleteRoom_HostOnly(t *testing.T) {
	env := newTestEnv(t, 0)
	aliceToken, alice := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")
	room := createRoom(t, env, alice, "Python Basics", "Python")
	deletePath := roomPath(room) + "/delete"

	resp := env.do(http.MethodPost, deletePath, url.Values{}, bobToken)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}

	resp = env.do(http.MethodGet, deletePath, nil, aliceToken)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Python Basics") {
		t.Fatalf("expected confirmation page, got %d", resp.Code)
	}

	resp = env.do(http.MethodPost, deletePath, url.Values{}, aliceToken)
	expectRedirect(t, resp, "/")

	if resp := env.do(http.MethodGet, roomPath(room), nil, ""); resp.Code != http.StatusNotFound {
		t.Errorf("expected deleted room to 404, got %d", resp.Code)
	}
}
