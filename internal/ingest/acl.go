package ingest

import (
	"strings"

	"github.com/aborroy/alfresco-lake-bridge/internal/lakeclient"
)

const everyonePrincipal = "__Everyone__"
const groupEveryoneAuthority = "GROUP_EVERYONE"

// BuildACL maps a node's read authorities to the lake's ACE model:
// GROUP_EVERYONE collapses to exactly one ACE with the well-known
// __Everyone__ user principal (never suffixed); every other authority gets
// the external-identity suffix and a Group or User principal depending on
// whether it carries the GROUP_ prefix.
func BuildACL(authorities []string, sourceRepositoryID string) []lakeclient.ACE {
	seenEveryone := false
	aces := make([]lakeclient.ACE, 0, len(authorities))
	for _, authority := range authorities {
		if authority == groupEveryoneAuthority {
			if seenEveryone {
				continue
			}
			seenEveryone = true
			aces = append(aces, lakeclient.ACE{
				Granted:    true,
				Permission: "Read",
				Principal:  lakeclient.Principal{Type: lakeclient.PrincipalUser, ID: everyonePrincipal},
			})
			continue
		}

		principalType := lakeclient.PrincipalUser
		if strings.HasPrefix(authority, "GROUP_") {
			principalType = lakeclient.PrincipalGroup
		}
		aces = append(aces, lakeclient.ACE{
			Granted:    true,
			Permission: "Read",
			Principal: lakeclient.Principal{
				Type: principalType,
				ID:   authority + "_#_" + sourceRepositoryID,
			},
		})
	}
	return aces
}
