package service

import (
	"context"

	"gocloud.dev/secrets"

	apperrors "github.com/allisson/integration-events/internal/errors"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// OpenPolicyKeeper opens a secrets.Keeper for encrypting subscriber policies.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func OpenPolicyKeeper(ctx context.Context, keyURI string) (*secrets.Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, apperrors.Wrapf(err, "opening policy keeper %s", keyURI)
	}
	return keeper, nil
}
