package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
	cryptoService "github.com/sidevault/sidevault/internal/crypto/service"
)

// RunCreateMasterKey generates a 32-byte master key, wraps it with the given
// KMS key and prints the environment configuration to out. The plaintext key
// is zeroed before returning.
//
// If keyID is empty a default in the format "master-key-YYYY-MM-DD" is used.
//
// For local development use kmsProvider="localsecrets" with
// kmsKeyURI="base64key://<32-byte-base64-key>". Production should use a cloud
// provider (gcpkms, awskms, azurekeyvault, hashivault).
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	out io.Writer,
	keyID, kmsProvider, kmsKeyURI string,
) error {
	if kmsProvider == "" || kmsKeyURI == "" {
		return fmt.Errorf(
			"--kms-provider and --kms-key-uri are required\n\n" +
				"For local development, use:\n" +
				"  --kms-provider=localsecrets --kms-key-uri=\"base64key://<32-byte-base64-key>\"\n\n" +
				"For production, use cloud KMS providers:\n" +
				"  --kms-provider=gcpkms --kms-key-uri=\"gcpkms://projects/.../cryptoKeys/...\"\n" +
				"  --kms-provider=awskms --kms-key-uri=\"awskms:///alias/...\"\n" +
				"  --kms-provider=azurekeyvault --kms-key-uri=\"azurekeyvault://...\"",
		)
	}

	if keyID == "" {
		keyID = fmt.Sprintf("master-key-%s", time.Now().Format("2006-01-02"))
	}

	masterKey := make([]byte, 32)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(masterKey)

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			fmt.Fprintf(out, "# Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	ciphertext, err := keeper.Encrypt(ctx, masterKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}

	encodedKey := base64.StdEncoding.EncodeToString(ciphertext)

	fmt.Fprintln(out, "# Master Key Configuration (KMS Mode)")
	fmt.Fprintln(out, "# Copy these environment variables to your .env file or secrets manager")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "KMS_PROVIDER=%q\n", kmsProvider)
	fmt.Fprintf(out, "KMS_KEY_URI=%q\n", kmsKeyURI)
	fmt.Fprintf(out, "MASTER_KEYS=\"%s:%s\"\n", keyID, encodedKey)
	fmt.Fprintf(out, "ACTIVE_MASTER_KEY_ID=%q\n", keyID)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "# For key rotation, append a second entry wrapped with the same KMS key:")
	fmt.Fprintf(out, "# MASTER_KEYS=\"%s:%s,new-key:<base64-kms-ciphertext>\"\n", keyID, encodedKey)
	fmt.Fprintln(out, "# ACTIVE_MASTER_KEY_ID=\"new-key\"")

	return nil
}
