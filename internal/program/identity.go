package program

import (
	"unicode/utf8"

	"github.com/mukon-labs/mukon/internal/runtime"
)

// Identity registry: Register / UpdateProfile / CloseProfile.
//
// Account order:
//   Register:      0 signer (writable, payer)  1 profile (w)  2 descriptor (w)
//   UpdateProfile: 0 signer                    1 profile (w)
//   CloseProfile:  0 signer (writable)         1 profile (w)

func validDisplayName(name string) error {
	if len(name) > MaxDisplayNameLen {
		return ErrInputTooLong
	}
	if !utf8.ValidString(name) {
		return ErrInputMalformed
	}
	return nil
}

func validAvatar(payload string) error {
	if len(payload) > MaxAvatarLen {
		return ErrInputTooLong
	}
	if !utf8.ValidString(payload) {
		return ErrInputMalformed
	}
	return nil
}

func processRegister(ctx *runtime.ExecContext) error {
	var args RegisterArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}
	if err := validDisplayName(args.DisplayName); err != nil {
		return err
	}
	if err := validAvatar(args.Avatar); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	profileInfo, err := requireAccount(ctx, 1)
	if err != nil {
		return err
	}
	descriptorInfo, err := requireAccount(ctx, 2)
	if err != nil {
		return err
	}

	profileAddr, _, derr := UserProfileAddress(signer.Key)
	if err := expectAddress(profileInfo.Key, profileAddr, derr); err != nil {
		return err
	}
	descriptorAddr, _, derr := WalletDescriptorAddress(signer.Key)
	if err := expectAddress(descriptorInfo.Key, descriptorAddr, derr); err != nil {
		return err
	}

	if profileInfo.Acct.Exists() {
		return ErrAlreadyRegistered
	}

	profile := &UserProfile{
		Owner:         signer.Key,
		DisplayName:   args.DisplayName,
		AvatarKind:    AvatarEmoji,
		AvatarPayload: args.Avatar,
		EncryptionKey: args.EncryptionPubkey,
	}
	data, err := profile.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if err := ctx.CreateAccount(profileInfo, signer, len(data)); err != nil {
		return err
	}
	copy(profileInfo.Acct.Data, data)

	// The descriptor may already exist if a peer invited this wallet
	// before it registered.
	if !descriptorInfo.Acct.Exists() {
		if err := createDescriptor(ctx, descriptorInfo, signer, signer.Key); err != nil {
			return err
		}
	}

	emitWallets(ctx, EventRegistered, signer.Key)
	return nil
}

func processUpdateProfile(ctx *runtime.ExecContext) error {
	var args UpdateProfileArgs
	if err := decodeArgs(ctx.Data, &args); err != nil {
		return err
	}

	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	profileInfo, err := requireOwned(ctx, 1)
	if err != nil {
		return err
	}

	profile, err := DecodeUserProfile(profileInfo.Acct.Data)
	if err != nil {
		return err
	}
	if profile.Owner != signer.Key {
		return ErrAccountOwnerMismatch
	}

	if args.DisplayName != nil {
		if err := validDisplayName(*args.DisplayName); err != nil {
			return err
		}
		profile.DisplayName = *args.DisplayName
	}
	if args.AvatarKind != nil {
		if *args.AvatarKind != AvatarEmoji && *args.AvatarKind != AvatarExternal {
			return ErrInputMalformed
		}
		profile.AvatarKind = *args.AvatarKind
	}
	if args.Avatar != nil {
		if err := validAvatar(*args.Avatar); err != nil {
			return err
		}
		profile.AvatarPayload = *args.Avatar
	}
	if args.EncryptionPubkey != nil {
		// Rotation does not invalidate peer relationships or stored
		// group keys; clients detect it out of band.
		profile.EncryptionKey = *args.EncryptionPubkey
	}

	data, err := profile.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if err := writeAccount(ctx, profileInfo, signer, data); err != nil {
		return err
	}

	emitWallets(ctx, EventProfileUpdated, signer.Key)
	return nil
}

func processCloseProfile(ctx *runtime.ExecContext) error {
	signer, err := requireSigner(ctx, 0)
	if err != nil {
		return err
	}
	profileInfo, err := requireOwned(ctx, 1)
	if err != nil {
		return err
	}

	profile, err := DecodeUserProfile(profileInfo.Acct.Data)
	if err != nil {
		return err
	}
	if profile.Owner != signer.Key {
		return ErrAccountOwnerMismatch
	}

	// The descriptor and any key shares stay behind; clients close them
	// separately to reclaim their rent.
	if err := ctx.CloseAccount(profileInfo, signer); err != nil {
		return err
	}

	emitWallets(ctx, EventProfileClosed, signer.Key)
	return nil
}

// createDescriptor allocates a fresh, empty descriptor for the given owner.
func createDescriptor(ctx *runtime.ExecContext, info, payer *runtime.AccountInfo, owner runtime.PublicKey) error {
	descriptor := &WalletDescriptor{Owner: owner}
	data, err := descriptor.Marshal()
	if err != nil {
		return ErrInputMalformed
	}
	if err := ctx.CreateAccount(info, payer, len(data)); err != nil {
		return err
	}
	copy(info.Acct.Data, data)
	return nil
}
