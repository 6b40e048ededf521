package core

import (
	"testing"
	"time"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func joinCmd(room, chatID, username string, claimsAdmin bool) *Command {
	return &Command{
		Kind:        CommandJoinRoom,
		Room:        room,
		ChatID:      chatID,
		Username:    username,
		ClaimsAdmin: claimsAdmin,
	}
}

func roleCmd(room, target string, role Role) *Command {
	return &Command{
		Kind:         CommandChangeRole,
		Room:         room,
		TargetChatID: target,
		Role:         role,
	}
}

// checkInvariants fails the test if the roster breaks any admin/role rule.
func checkInvariants(t *testing.T, s RoomState) {
	t.Helper()

	seenChat := make(map[string]bool)
	seenConn := make(map[string]bool)
	admins := 0
	for _, sess := range s.Sessions() {
		if seenChat[sess.ChatID] {
			t.Fatalf("duplicate chat id %q in roster %+v", sess.ChatID, s.Sessions())
		}
		seenChat[sess.ChatID] = true
		if sess.ConnectionID != "" {
			if seenConn[sess.ConnectionID] {
				t.Fatalf("duplicate connection id %q in roster %+v", sess.ConnectionID, s.Sessions())
			}
			seenConn[sess.ConnectionID] = true
		}

		isAdmin := s.AdminChatID != "" && sess.ChatID == s.AdminChatID
		if sess.IsAdmin != isAdmin {
			t.Fatalf("session %q IsAdmin=%v, admin chat id %q", sess.ChatID, sess.IsAdmin, s.AdminChatID)
		}
		if isAdmin {
			admins++
			if sess.Role != RoleAdmin {
				t.Fatalf("admin session %q has role %q", sess.ChatID, sess.Role)
			}
		} else if !sess.Role.Assignable() {
			t.Fatalf("non-admin session %q has role %q", sess.ChatID, sess.Role)
		}
	}
	if admins > 1 {
		t.Fatalf("expected at most one admin, got %d", admins)
	}
}
