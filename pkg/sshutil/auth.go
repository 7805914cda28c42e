package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/rileyhilliard/hostwatch/internal/errors"
)

// Environment overrides used by CI, where there is no agent and no ~/.ssh.
const (
	TestUserEnv = "HOSTWATCH_TEST_SSH_USER"
	TestKeyEnv  = "HOSTWATCH_TEST_SSH_KEY"
)

// EncryptedKeyError is returned when a key file needs a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// authSet collects auth methods for one connection attempt.
type authSet struct {
	methods   []ssh.AuthMethod
	encrypted []string
	tried     map[string]bool
}

func (a *authSet) addKeyFile(path string) {
	if path == "" || a.tried[path] {
		return
	}
	a.tried[path] = true

	m, err := keyFileAuth(path)
	if err != nil {
		var encErr *EncryptedKeyError
		if stderrors.As(err, &encErr) {
			a.encrypted = append(a.encrypted, path)
		}
		return
	}
	a.methods = append(a.methods, m)
}

// authMethods gathers the agent, the test key override, the target's
// IdentityFile and the default key files, in that order.
func authMethods(t *target) (*authSet, error) {
	a := &authSet{tried: make(map[string]bool)}

	if m := agentAuth(); m != nil {
		a.methods = append(a.methods, m)
	}
	a.addKeyFile(os.Getenv(TestKeyEnv))
	a.addKeyFile(t.identityFile)
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		a.addKeyFile(filepath.Join(homeDir(), ".ssh", name))
	}

	if len(a.methods) > 0 {
		return a, nil
	}
	if len(a.encrypted) > 0 {
		return nil, errors.New(errors.ErrTunnel,
			fmt.Sprintf("Found SSH key(s) for tunnel '%s' but they're encrypted: %s",
				t.alias, strings.Join(a.encrypted, ", ")),
			addKeysSuggestion(a.encrypted))
	}
	return nil, errors.New(errors.ErrTunnel,
		fmt.Sprintf("No SSH auth methods available for tunnel '%s'", t.alias),
		"Check your keys are loaded: ssh-add -l")
}

func addKeysSuggestion(keys []string) string {
	var sb strings.Builder
	sb.WriteString("Add your key(s) to the agent:\n")
	for _, key := range keys {
		if runtime.GOOS == "darwin" {
			fmt.Fprintf(&sb, "  ssh-add --apple-use-keychain %s\n", key)
		} else {
			fmt.Fprintf(&sb, "  ssh-add %s\n", key)
		}
	}
	sb.WriteString("\nNot sure which key? Check with: ssh -v <host>")
	return sb.String()
}

var (
	agentMu     sync.Mutex
	agentConn   net.Conn
	agentClient agent.ExtendedAgent
)

// agentAuth returns agent-backed auth, or nil when there is no agent or it
// holds no keys. An empty agent ahead of key files makes servers give up early.
func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentMu.Lock()
	defer agentMu.Unlock()
	if agentClient == nil {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return nil
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	}

	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

// AgentKeys returns how many keys the ssh-agent at SSH_AUTH_SOCK holds.
func AgentKeys() (int, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return 0, errors.New(errors.ErrTunnel,
			"SSH agent not running",
			"Start one with: eval $(ssh-agent) && ssh-add")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrTunnel,
			"SSH agent socket not accessible",
			"Start one with: eval $(ssh-agent) && ssh-add")
	}
	defer conn.Close()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrTunnel,
			"Cannot query SSH agent", "Check the agent with: ssh-add -l")
	}
	return len(keys), nil
}

// CloseAgent releases the shared agent connection.
func CloseAgent() {
	agentMu.Lock()
	defer agentMu.Unlock()
	if agentConn != nil {
		agentConn.Close()
		agentConn, agentClient = nil, nil
	}
}

func keyFileAuth(path string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || bytes.Contains(key, []byte("ENCRYPTED")) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}
