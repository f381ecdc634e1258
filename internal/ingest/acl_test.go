package ingest

import "testing"

func TestBuildACL_CollapsesGroupEveryoneToSingleUnsuffixedACE(t *testing.T) {
	aces := BuildACL([]string{"GROUP_EVERYONE", "alice", "GROUP_finance"}, "repo-1")
	if len(aces) != 3 {
		t.Fatalf("expected 3 ACEs, got %d: %+v", len(aces), aces)
	}
	if aces[0].Principal.ID != everyonePrincipal {
		t.Fatalf("expected unsuffixed everyone principal, got %q", aces[0].Principal.ID)
	}
	if aces[1].Principal.ID != "alice_#_repo-1" {
		t.Fatalf("unexpected user principal: %q", aces[1].Principal.ID)
	}
	if aces[2].Principal.Type != "Group" || aces[2].Principal.ID != "GROUP_finance_#_repo-1" {
		t.Fatalf("unexpected group principal: %+v", aces[2])
	}
}

func TestBuildACL_DedupsRepeatedGroupEveryone(t *testing.T) {
	aces := BuildACL([]string{"GROUP_EVERYONE", "GROUP_EVERYONE"}, "repo-1")
	if len(aces) != 1 {
		t.Fatalf("expected exactly one __Everyone__ ACE, got %d", len(aces))
	}
}
