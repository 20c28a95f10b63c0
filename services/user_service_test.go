package services

import (
	"context"
	"testing"

	"pulse_server/apperrors"
	"pulse_server/models"
	"pulse_server/utils"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

func TestResolveByExternalID(t *testing.T) {
	env := newTestEnv()
	alice := env.seedUser(t, "alice")

	resolved, err := env.users.ResolveByExternalID(context.Background(), alice.ExternalID)
	require.NoError(t, err)
	require.Equal(t, alice.UserID, resolved.UserID)

	_, err = env.users.ResolveByExternalID(context.Background(), "")
	require.Equal(t, apperrors.CodeUnauthenticated, apperrors.CodeOf(err))

	_, err = env.users.ResolveByExternalID(context.Background(), "ext-nobody")
	require.Equal(t, apperrors.CodeUnauthenticated, apperrors.CodeOf(err))
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	env := newTestEnv()

	first, err := env.users.EnsureUser(context.Background(), "ext-new", "newbie", "New Person", "")
	require.NoError(t, err)
	require.NotEmpty(t, first.UserID)

	second, err := env.users.EnsureUser(context.Background(), "ext-new", "newbie", "New Person", "")
	require.NoError(t, err)
	require.Equal(t, first.UserID, second.UserID)
}

func TestEnsureUserHoldsOneProfilePerPrincipal(t *testing.T) {
	env := newTestEnv()

	first, err := env.users.EnsureUser(context.Background(), "ext-race", "racer", "Race R", "")
	require.NoError(t, err)

	// The lock row pins the principal to the created profile
	lock, err := env.users.Dynamo.GetItem(context.Background(), models.ExternalIDLocksTable, map[string]types.AttributeValue{
		"externalId": &types.AttributeValueMemberS{Value: "ext-race"},
	})
	require.NoError(t, err)
	require.Equal(t, first.UserID, utils.ExtractString(lock, "userId"))

	// Even when the profile row is not yet visible to the resolver, the
	// lock keeps a second create from minting another profile
	require.NoError(t, env.users.Dynamo.DeleteItem(context.Background(), models.UserProfilesTable, map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: first.UserID},
	}))
	_, err = env.users.EnsureUser(context.Background(), "ext-race", "racer", "Race R", "")
	require.Error(t, err)

	var profiles []models.UserProfile
	require.NoError(t, env.users.Dynamo.ScanWithFilter(context.Background(), models.UserProfilesTable, nil, &profiles))
	require.Empty(t, profiles)
}

func TestEnsureUserValidation(t *testing.T) {
	env := newTestEnv()

	_, err := env.users.EnsureUser(context.Background(), "", "newbie", "", "")
	require.Equal(t, apperrors.CodeUnauthenticated, apperrors.CodeOf(err))

	_, err = env.users.EnsureUser(context.Background(), "ext-new", "", "", "")
	require.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestGetProfilesByIDsSkipsMissing(t *testing.T) {
	env := newTestEnv()
	alice := env.seedUser(t, "alice")

	profiles, err := env.users.GetProfilesByIDs(context.Background(), []string{alice.UserID, "u-ghost", alice.UserID})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Contains(t, profiles, alice.UserID)
}

func TestSearchUsers(t *testing.T) {
	env := newTestEnv()
	alice := env.seedUser(t, "alice")
	env.seedUser(t, "bob")
	env.seedUser(t, "bobby")
	env.seedUser(t, "carol")

	// Too-short terms return nothing rather than scanning everyone
	results, err := env.users.SearchUsers(context.Background(), alice.UserID, "b")
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = env.users.SearchUsers(context.Background(), alice.UserID, "BOB")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "bob", results[0].Username)
	require.Equal(t, "bobby", results[1].Username)

	// The caller never matches themselves
	results, err = env.users.SearchUsers(context.Background(), alice.UserID, "alice")
	require.NoError(t, err)
	require.Empty(t, results)
}
