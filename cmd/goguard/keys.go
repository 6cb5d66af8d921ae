package main

import (
	"bufio"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/MrEthical07/goGuard/internal/envconfig"
	"github.com/MrEthical07/goGuard/keys"
)

var errDeclined = errors.New("existing key material kept")

// confirmOverwrite asks before replacing key material that is already configured.
func (c *cli) confirmOverwrite(what string, force, alwaysNo bool) error {
	if force {
		return nil
	}
	if alwaysNo {
		return errDeclined
	}

	fmt.Fprintf(c.stdout, "%s is already set. Overwrite? [y/N] ", what)
	line, _ := bufio.NewReader(c.stdin).ReadString('\n')
	if strings.EqualFold(strings.TrimSpace(line), "y") || strings.EqualFold(strings.TrimSpace(line), "yes") {
		return nil
	}
	return errDeclined
}

func (c *cli) secret(args []string) error {
	fs := pflag.NewFlagSet("secret", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	show := fs.BoolP("show", "s", false, "print the secret instead of writing .env")
	force := fs.BoolP("force", "f", false, "overwrite an existing secret without asking")
	alwaysNo := fs.Bool("always-no", false, "never overwrite an existing secret")
	length := fs.Int("length", keys.DefaultSecretLength, "secret length")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *length < 32 {
		return fmt.Errorf("secret length must be at least 32, got %d", *length)
	}

	secret, err := keys.GenerateSecret(*length)
	if err != nil {
		return err
	}
	if *show {
		fmt.Fprintln(c.stdout, secret)
		return nil
	}

	current, err := envconfig.DotEnvValue(c.dir, "JWT_SECRET")
	if err != nil {
		return err
	}
	if current != "" {
		if err := c.confirmOverwrite("JWT_SECRET", *force, *alwaysNo); err != nil {
			fmt.Fprintln(c.stdout, err)
			return nil
		}
	}

	if err := envconfig.UpdateDotEnv(c.dir, map[string]string{
		"JWT_SECRET": secret,
		"JWT_ALGO":   "HS256",
	}); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "jwt secret written to .env")
	return nil
}

func (c *cli) cert(args []string) error {
	fs := pflag.NewFlagSet("cert", pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	algo := fs.String("algo", "RS256", "signing algorithm (RS256, RS384, RS512, ES256, ES384, ES256K)")
	bits := fs.Int("bits", 4096, "RSA key size")
	curve := fs.String("curve", "", "EC curve name; defaults to the curve of --algo")
	passphrase := fs.String("passphrase", "", "encrypt the private key")
	outDir := fs.String("dir", c.dir, "directory for the PEM files")
	force := fs.BoolP("force", "f", false, "overwrite configured keys without asking")
	alwaysNo := fs.Bool("always-no", false, "never overwrite configured keys")
	if err := fs.Parse(args); err != nil {
		return err
	}

	alg := strings.ToUpper(*algo)
	privPEM, pubPEM, size, err := generatePair(alg, *bits, *curve, []byte(*passphrase))
	if err != nil {
		return err
	}

	current, err := envconfig.DotEnvValue(c.dir, "JWT_PRIVATE_KEY")
	if err != nil {
		return err
	}
	if current != "" {
		if err := c.confirmOverwrite("JWT_PRIVATE_KEY", *force, *alwaysNo); err != nil {
			fmt.Fprintln(c.stdout, err)
			return nil
		}
	}

	if _, err := keys.NewKeyPair(alg, privPEM, pubPEM, []byte(*passphrase)); err != nil {
		return fmt.Errorf("generated key does not fit %s: %w", alg, err)
	}

	base := fmt.Sprintf("jwt-%s-%d", strings.ToLower(alg), size)
	privPath := filepath.Join(*outDir, base+"-private.pem")
	pubPath := filepath.Join(*outDir, base+"-public.pem")
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return err
	}

	if err := envconfig.UpdateDotEnv(c.dir, map[string]string{
		"JWT_ALGO":        alg,
		"JWT_PRIVATE_KEY": privPath,
		"JWT_PUBLIC_KEY":  pubPath,
		"JWT_PASSPHRASE":  *passphrase,
	}); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "key pair written to %s and %s\n", privPath, pubPath)
	return nil
}

func generatePair(alg string, bits int, curve string, passphrase []byte) ([]byte, []byte, int, error) {
	if alg == "ES256K" {
		if len(passphrase) > 0 {
			return nil, nil, 0, errors.New("--passphrase is not supported for ES256K keys")
		}
		key, err := keys.GenerateSecp256k1()
		if err != nil {
			return nil, nil, 0, err
		}
		privPEM, err := keys.EncodeSecp256k1PrivateKey(key)
		if err != nil {
			return nil, nil, 0, err
		}
		pubPEM, err := keys.EncodeSecp256k1PublicKey(key.PubKey())
		return privPEM, pubPEM, 256, err
	}

	var (
		private crypto.Signer
		size    int
	)
	switch alg[:min(2, len(alg))] {
	case "RS":
		key, err := keys.GenerateRSA(bits)
		if err != nil {
			return nil, nil, 0, err
		}
		private, size = key, bits
	case "ES":
		if curve == "" {
			curve = curveFor(alg)
		}
		key, err := keys.GenerateEC(curve)
		if err != nil {
			return nil, nil, 0, err
		}
		private, size = key, key.Curve.Params().BitSize
	default:
		return nil, nil, 0, fmt.Errorf("%w: %s", keys.ErrUnsupportedAlgorithm, alg)
	}

	privPEM, err := keys.EncodePrivateKey(private, passphrase)
	if err != nil {
		return nil, nil, 0, err
	}
	pubPEM, err := keys.EncodePublicKey(private.Public())
	return privPEM, pubPEM, size, err
}

func curveFor(alg string) string {
	if alg == "ES384" {
		return "secp384r1"
	}
	return "prime256v1"
}
