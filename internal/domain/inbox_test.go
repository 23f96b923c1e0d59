package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGroupingKeyPrecedence(t *testing.T) {
	accountID := uuid.New()
	targetID := uuid.New()

	env := InboundEnvelope{
		SocialAccountID:  accountID,
		AuthorExternalID: "author-1",
		ThreadID:         "thread-7",
		PostTargetID:     &targetID,
	}
	require.Equal(t, "thread:thread-7", env.GroupingKey())

	env.ThreadID = ""
	require.Equal(t, "target:"+targetID.String(), env.GroupingKey())

	env.PostTargetID = nil
	require.Equal(t, "author:"+accountID.String()+":author-1", env.GroupingKey())
}

func TestGroupingKeySameTargetSharesConversation(t *testing.T) {
	targetID := uuid.New()

	first := InboundEnvelope{
		SocialAccountID:  uuid.New(),
		AuthorExternalID: "author-1",
		PostTargetID:     &targetID,
	}
	second := first
	second.AuthorExternalID = "author-2"

	require.Equal(t, first.GroupingKey(), second.GroupingKey())
}
