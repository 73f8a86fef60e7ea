// Command sshcorecli is a thin exec/shell/scp front end over the session
// package, mainly useful for exercising the library end to end. It is
// peripheral glue, not part of the protocol core.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/riglite/sshcore/hostkey"
	"github.com/riglite/sshcore/kex"
	"github.com/riglite/sshcore/session"
	"github.com/riglite/sshcore/transport"
	"github.com/riglite/sshcore/userauth"
)

const (
	exitOK          = 0
	exitGeneric     = 1
	exitAuthFailed  = 2
	exitTransport   = 255
	defaultSSHPort  = "22"
	defaultTimeout  = 30 * time.Second
	defaultAppTitle = "sshcorecli"
)

type globalFlags struct {
	addr          string
	user          string
	password      string
	identity      string
	knownHosts    string
	insecure      bool
	tofu          bool
	connectTimout time.Duration
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		usage()
		return exitGeneric
	}

	sub := args[0]
	fs := flag.NewFlagSet(sub, flag.ContinueOnError)
	gf := &globalFlags{}
	fs.StringVar(&gf.addr, "addr", "", "host:port to connect to")
	fs.StringVar(&gf.user, "user", "", "username")
	fs.StringVar(&gf.password, "password", "", "password authentication")
	fs.StringVar(&gf.identity, "identity", "", "path to a PEM-encoded private key")
	fs.StringVar(&gf.knownHosts, "known-hosts", "~/.ssh/known_hosts", "known_hosts file path")
	fs.BoolVar(&gf.insecure, "insecure", false, "skip host key verification (testing only)")
	fs.BoolVar(&gf.tofu, "tofu", false, "trust host keys on first use and persist them")
	fs.DurationVar(&gf.connectTimout, "connect-timeout", defaultTimeout, "connect timeout")

	if err := fs.Parse(args[1:]); err != nil {
		return exitGeneric
	}
	rest := fs.Args()

	if gf.addr == "" || gf.user == "" {
		fmt.Fprintln(os.Stderr, "sshcorecli: -addr and -user are required")
		return exitGeneric
	}

	ctx, cancel := context.WithTimeout(context.Background(), gf.connectTimout)
	defer cancel()

	sess, err := dial(ctx, gf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sshcorecli:", err)
		return classifyError(err)
	}
	defer sess.Close()

	switch sub {
	case "exec":
		return runExec(ctx, sess, rest)
	case "shell":
		return runShell(ctx, sess)
	case "upload":
		return runUpload(ctx, sess, fs, rest)
	case "download":
		return runDownload(ctx, sess, fs, rest)
	default:
		usage()
		return exitGeneric
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sshcorecli <exec|shell|upload|download> -addr host:port -user name [options] ...`)
}

func dial(ctx context.Context, gf *globalFlags) (*session.Session, error) {
	verifier, err := hostKeyVerifier(gf)
	if err != nil {
		return nil, err
	}

	auth, err := authMethods(gf)
	if err != nil {
		return nil, err
	}

	cfg := &session.Config{
		User:            gf.user,
		Auth:            auth,
		HostKeyVerifier: verifier,
		ConnectTimeout:  gf.connectTimout,
	}
	return session.Dial(ctx, gf.addr, cfg)
}

func authMethods(gf *globalFlags) ([]session.AuthMethod, error) {
	var methods []session.AuthMethod
	if gf.identity != "" {
		signer, err := loadSigner(gf.identity)
		if err != nil {
			return nil, fmt.Errorf("load identity %s: %w", gf.identity, err)
		}
		methods = append(methods, userauth.PublicKeyMethod{Signer: signer})
	}
	if gf.password != "" {
		methods = append(methods, userauth.PasswordMethod{Password: gf.password})
	}
	if len(methods) == 0 {
		return nil, errors.New("no authentication method configured (-password or -identity)")
	}
	return methods, nil
}

func hostKeyVerifier(gf *globalFlags) (hostkey.Verifier, error) {
	if gf.insecure {
		return hostkey.InsecureIgnoreVerifier{}, nil
	}
	path, err := expandHome(gf.knownHosts)
	if err != nil {
		return nil, err
	}
	store, err := hostkey.NewStore(path)
	if err != nil {
		return nil, err
	}
	store.TOFU = gf.tofu
	return store, nil
}

// classifyError maps a Dial/operation failure to the exit codes spec.md
// §6 defines: 2 for authentication denial, 255 for anything at or below
// the transport/key-exchange layer, 1 otherwise.
func classifyError(err error) int {
	switch {
	case errors.Is(err, userauth.ErrAuthDenied), errors.Is(err, userauth.ErrPasswordChangeRequired):
		return exitAuthFailed
	case errors.Is(err, transport.ErrIoBroken),
		errors.Is(err, transport.ErrTimeout),
		errors.Is(err, transport.ErrMacError),
		errors.Is(err, transport.ErrBannerInvalid),
		errors.Is(err, kex.ErrKexFailure),
		errors.Is(err, kex.ErrNoCommonAlgorithm),
		errors.Is(err, hostkey.ErrHostKeyMismatch):
		return exitTransport
	default:
		return exitGeneric
	}
}
