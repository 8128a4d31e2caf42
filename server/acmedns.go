// server/acmedns.go
package server

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/dalemusser/contactform/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme"
)

const (
	// renewalBuffer is how long before expiry a certificate is replaced.
	renewalBuffer = 30 * 24 * time.Hour

	dnsPropagationTimeout  = 5 * time.Minute
	dnsPropagationInterval = 5 * time.Second
	renewalCheckInterval   = 12 * time.Hour

	// dns01ValueLength is the length of base64url(SHA-256) without padding.
	dns01ValueLength = 43
)

// TXTRecords publishes and removes the TXT records that answer dns-01.
type TXTRecords interface {
	UpsertTXT(ctx context.Context, name, value string) error
	DeleteTXT(ctx context.Context, name, value string) error
}

// route53API is the part of the Route 53 client the record writer uses.
type route53API interface {
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, opts ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
	GetChange(ctx context.Context, in *route53.GetChangeInput, opts ...func(*route53.Options)) (*route53.GetChangeOutput, error)
}

// Route53Records writes challenge records into one hosted zone.
type Route53Records struct {
	API         route53API
	ZoneID      string
	WaitTimeout time.Duration // 0 skips waiting for INSYNC
	Logger      *zap.Logger

	// Route 53 throttles bursts of changes on one zone.
	mu sync.Mutex
}

// NewRoute53Records builds a writer from the TLS settings. Static keys are
// used when both are set, otherwise the default AWS credential chain.
func NewRoute53Records(ctx context.Context, tlsCfg config.TLSConfig, logger *zap.Logger) (*Route53Records, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if tlsCfg.Route53AccessKeyID != "" && tlsCfg.Route53SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(tlsCfg.Route53AccessKeyID, tlsCfg.Route53SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dns01: load AWS config: %w", err)
	}
	return &Route53Records{
		API:         route53.NewFromConfig(awsCfg),
		ZoneID:      tlsCfg.Route53HostedZoneID,
		WaitTimeout: 5 * time.Minute,
		Logger:      logger,
	}, nil
}

func (r *Route53Records) change(ctx context.Context, action types.ChangeAction, name, value string) (*route53.ChangeResourceRecordSetsOutput, error) {
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	if err := validateDNSRecordName(name); err != nil {
		return nil, err
	}
	if err := validateDNS01Value(value); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.API.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.ZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action: action,
				ResourceRecordSet: &types.ResourceRecordSet{
					Name:            aws.String(name),
					Type:            types.RRTypeTxt,
					TTL:             aws.Int64(60),
					ResourceRecords: []types.ResourceRecord{{Value: aws.String(`"` + value + `"`)}},
				},
			}},
		},
	})
}

// UpsertTXT writes the record and waits until Route 53 reports it in sync.
func (r *Route53Records) UpsertTXT(ctx context.Context, name, value string) error {
	out, err := r.change(ctx, types.ChangeActionUpsert, name, value)
	if err != nil {
		return fmt.Errorf("create DNS record: %w", err)
	}
	if out == nil || out.ChangeInfo == nil || out.ChangeInfo.Id == nil {
		return errors.New("route53 returned no change id")
	}
	if r.WaitTimeout <= 0 {
		return nil
	}
	waiter := route53.NewResourceRecordSetsChangedWaiter(r.API)
	if err := waiter.Wait(ctx, &route53.GetChangeInput{Id: out.ChangeInfo.Id}, r.WaitTimeout); err != nil {
		return fmt.Errorf("waiting for route53 change %s: %w", aws.ToString(out.ChangeInfo.Id), err)
	}
	return nil
}

// DeleteTXT removes a record written by UpsertTXT.
func (r *Route53Records) DeleteTXT(ctx context.Context, name, value string) error {
	if _, err := r.change(ctx, types.ChangeActionDelete, name, value); err != nil {
		return fmt.Errorf("delete DNS record: %w", err)
	}
	return nil
}

// DNS01Manager obtains and renews the certificate for one domain through
// ACME dns-01. It caches the account key, account URI and certificate in
// CacheDir.
type DNS01Manager struct {
	Domain       string
	Email        string
	CacheDir     string
	DirectoryURL string
	Records      TXTRecords
	Logger       *zap.Logger

	// LookupTXT checks propagation; nil uses the system resolver.
	LookupTXT func(ctx context.Context, name string) ([]string, error)

	clientMu sync.Mutex
	client   *acme.Client

	certMu sync.RWMutex
	cert   *tls.Certificate
	expiry time.Time

	// renewMu serializes obtain; callers that waited recheck the cache.
	renewMu sync.Mutex
}

type acmeAccount struct {
	URI string `json:"uri"`
}

// NewDNS01Manager validates the settings and prepares the cache directory.
func NewDNS01Manager(domain, email, cacheDir, directoryURL string, records TXTRecords, logger *zap.Logger) (*DNS01Manager, error) {
	if err := validateDomainFormat(domain); err != nil {
		return nil, fmt.Errorf("dns01: %w", err)
	}
	switch {
	case email == "":
		return nil, errors.New("dns01: email is required")
	case cacheDir == "":
		return nil, errors.New("dns01: cache directory is required")
	case directoryURL == "":
		return nil, errors.New("dns01: ACME directory URL is required")
	case records == nil:
		return nil, errors.New("dns01: no DNS record writer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return nil, fmt.Errorf("dns01: create cache dir: %w", err)
	}
	return &DNS01Manager{
		Domain:       domain,
		Email:        email,
		CacheDir:     cacheDir,
		DirectoryURL: directoryURL,
		Records:      records,
		Logger:       logger,
	}, nil
}

func (m *DNS01Manager) current() (*tls.Certificate, bool) {
	m.certMu.RLock()
	defer m.certMu.RUnlock()
	return m.cert, m.cert != nil && time.Now().Add(renewalBuffer).Before(m.expiry)
}

func (m *DNS01Manager) store(cert *tls.Certificate) {
	m.certMu.Lock()
	m.cert, m.expiry = cert, cert.Leaf.NotAfter
	m.certMu.Unlock()
}

// GetCertificate is the tls.Config callback. Only one caller obtains a
// certificate at a time; the rest wait and reuse its result.
func (m *DNS01Manager) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if cert, ok := m.current(); ok {
		return cert, nil
	}
	ctx := context.Background()
	if hello != nil && hello.Context() != nil {
		ctx = hello.Context()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	return m.obtain(ctx)
}

// PreWarm loads or obtains the certificate before the listener opens.
func (m *DNS01Manager) PreWarm(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 15*time.Minute)
		defer cancel()
	}
	_, err := m.obtain(ctx)
	return err
}

// RenewLoop checks the certificate every renewalCheckInterval until ctx
// ends, so renewals do not land on a TLS handshake.
func (m *DNS01Manager) RenewLoop(ctx context.Context) {
	t := time.NewTicker(renewalCheckInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, ok := m.current(); ok {
				continue
			}
			if _, err := m.obtain(ctx); err != nil && ctx.Err() == nil {
				m.Logger.Error("background certificate renewal failed", zap.String("domain", m.Domain), zap.Error(err))
			}
		}
	}
}

func (m *DNS01Manager) obtain(ctx context.Context) (*tls.Certificate, error) {
	m.renewMu.Lock()
	defer m.renewMu.Unlock()

	if cert, ok := m.current(); ok {
		return cert, nil
	}
	if cert, err := m.loadCachedCert(); err == nil {
		if time.Now().Add(renewalBuffer).Before(cert.Leaf.NotAfter) {
			m.store(cert)
			m.Logger.Info("loaded certificate from cache",
				zap.String("domain", m.Domain), zap.Time("expiry", cert.Leaf.NotAfter))
			return cert, nil
		}
	}

	m.Logger.Info("obtaining certificate via dns-01", zap.String("domain", m.Domain))
	client, err := m.ensureClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("dns01: init client: %w", err)
	}
	order, err := client.AuthorizeOrder(ctx, acme.DomainIDs(m.Domain))
	if err != nil {
		return nil, fmt.Errorf("dns01: authorize order: %w", err)
	}
	for _, u := range order.AuthzURLs {
		if err := m.authorize(ctx, client, u); err != nil {
			return nil, err
		}
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("dns01: generate cert key: %w", err)
	}
	csr, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{DNSNames: []string{m.Domain}}, key)
	if err != nil {
		return nil, fmt.Errorf("dns01: create CSR: %w", err)
	}
	der, _, err := client.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return nil, fmt.Errorf("dns01: finalize order: %w", err)
	}
	if len(der) == 0 || len(der[0]) == 0 {
		return nil, errors.New("dns01: empty certificate chain")
	}
	leaf, err := x509.ParseCertificate(der[0])
	if err != nil {
		return nil, fmt.Errorf("dns01: parse certificate: %w", err)
	}
	cert := &tls.Certificate{Certificate: der, PrivateKey: key, Leaf: leaf}

	if err := m.cacheCert(cert); err != nil {
		m.Logger.Warn("failed to cache certificate", zap.Error(err))
	}
	m.store(cert)
	m.Logger.Info("obtained certificate", zap.String("domain", m.Domain), zap.Time("expiry", leaf.NotAfter))
	return cert, nil
}

// authorize answers one authorization and always removes the TXT record
// it wrote.
func (m *DNS01Manager) authorize(ctx context.Context, client *acme.Client, authzURL string) error {
	authz, err := client.GetAuthorization(ctx, authzURL)
	if err != nil {
		return fmt.Errorf("dns01: get authorization: %w", err)
	}
	if authz.Status == acme.StatusValid {
		return nil
	}
	var chal *acme.Challenge
	for _, c := range authz.Challenges {
		if c.Type == config.ChallengeDNS01 {
			chal = c
			break
		}
	}
	if chal == nil {
		return errors.New("dns01: no dns-01 challenge offered")
	}
	value, err := client.DNS01ChallengeRecord(chal.Token)
	if err != nil {
		return fmt.Errorf("dns01: challenge record: %w", err)
	}

	name := challengeRecordName(authz.Identifier.Value)
	if err := m.Records.UpsertTXT(ctx, name, value); err != nil {
		return fmt.Errorf("dns01: %w", err)
	}
	defer func() {
		if err := m.Records.DeleteTXT(context.WithoutCancel(ctx), name, value); err != nil {
			m.Logger.Warn("failed to delete DNS challenge record", zap.String("record", name), zap.Error(err))
		}
	}()

	if err := m.waitForPropagation(ctx, name, value); err != nil {
		return fmt.Errorf("dns01: DNS propagation: %w", err)
	}
	if _, err := client.Accept(ctx, chal); err != nil {
		return fmt.Errorf("dns01: accept challenge: %w", err)
	}
	if _, err := client.WaitAuthorization(ctx, authzURL); err != nil {
		return fmt.Errorf("dns01: wait authorization: %w", err)
	}
	return nil
}

// challengeRecordName is where the TXT record goes; a wildcard order is
// validated on its base domain.
func challengeRecordName(domain string) string {
	return "_acme-challenge." + strings.TrimPrefix(domain, "*.")
}

func (m *DNS01Manager) waitForPropagation(ctx context.Context, name, want string) error {
	lookup := m.LookupTXT
	if lookup == nil {
		lookup = net.DefaultResolver.LookupTXT
	}
	ctx, cancel := context.WithTimeout(ctx, dnsPropagationTimeout)
	defer cancel()

	start := time.Now()
	for {
		records, err := lookup(ctx, name)
		if err == nil {
			for _, r := range records {
				if r == want {
					m.Logger.Info("DNS propagation confirmed",
						zap.String("record", name), zap.Duration("elapsed", time.Since(start)))
					return nil
				}
			}
		} else {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && !dnsErr.IsNotFound && !dnsErr.IsTemporary {
				m.Logger.Warn("DNS lookup error", zap.String("record", name), zap.Error(err))
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(dnsPropagationInterval):
		}
	}
}

func (m *DNS01Manager) ensureClient(ctx context.Context) (*acme.Client, error) {
	m.clientMu.Lock()
	defer m.clientMu.Unlock()
	if m.client != nil {
		return m.client, nil
	}

	key, err := m.loadOrCreateAccountKey()
	if err != nil {
		return nil, fmt.Errorf("account key: %w", err)
	}
	client := &acme.Client{Key: key, DirectoryURL: m.DirectoryURL}

	if acc, err := m.loadAccount(); err == nil && acc.URI != "" {
		if _, err := client.GetReg(ctx, acc.URI); err == nil {
			m.client = client
			return client, nil
		}
		m.Logger.Debug("cached ACME account invalid, registering again", zap.String("uri", acc.URI))
	}

	acc, err := client.Register(ctx, &acme.Account{Contact: []string{"mailto:" + m.Email}}, acme.AcceptTOS)
	if errors.Is(err, acme.ErrAccountAlreadyExists) {
		acc, err = client.GetReg(ctx, "")
	}
	if err != nil {
		return nil, fmt.Errorf("register account: %w", err)
	}
	if err := m.saveAccount(acmeAccount{URI: acc.URI}); err != nil {
		m.Logger.Warn("failed to cache ACME account", zap.Error(err))
	}
	m.Logger.Info("ACME account ready", zap.String("email", m.Email), zap.String("uri", acc.URI))
	m.client = client
	return client, nil
}

func (m *DNS01Manager) loadOrCreateAccountKey() (crypto.Signer, error) {
	path := filepath.Join(m.CacheDir, "account.key")
	if data, err := os.ReadFile(path); err == nil {
		if block, _ := pem.Decode(data); block != nil && block.Type == "EC PRIVATE KEY" {
			if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
				return key, nil
			}
		}
		m.Logger.Warn("cached account key unreadable; generating a new one", zap.String("path", path))
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(path, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})); err != nil {
		return nil, err
	}
	return key, nil
}

func (m *DNS01Manager) loadAccount() (acmeAccount, error) {
	var acc acmeAccount
	data, err := os.ReadFile(filepath.Join(m.CacheDir, "account.json"))
	if err != nil {
		return acc, err
	}
	if err := json.Unmarshal(data, &acc); err != nil {
		return acc, err
	}
	if acc.URI != "" && !strings.HasPrefix(acc.URI, "https://") {
		return acmeAccount{}, fmt.Errorf("cached account URI must be https: %s", acc.URI)
	}
	return acc, nil
}

func (m *DNS01Manager) saveAccount(acc acmeAccount) error {
	data, err := json.Marshal(acc)
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(m.CacheDir, "account.json"), data)
}

// certPaths names the cache files; the domain was validated so it holds
// no path separators.
func (m *DNS01Manager) certPaths() (certPath, keyPath string) {
	name := strings.Replace(m.Domain, "*.", "wildcard.", 1)
	return filepath.Join(m.CacheDir, name+".crt"), filepath.Join(m.CacheDir, name+".key")
}

func (m *DNS01Manager) loadCachedCert() (*tls.Certificate, error) {
	certPath, keyPath := m.certPaths()
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	if cert.Leaf == nil {
		if cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("parse cached leaf: %w", err)
		}
	}
	if err := cert.Leaf.VerifyHostname(strings.Replace(m.Domain, "*", "x", 1)); err != nil {
		return nil, fmt.Errorf("cached certificate does not cover %s: %w", m.Domain, err)
	}
	return &cert, nil
}

func (m *DNS01Manager) cacheCert(cert *tls.Certificate) error {
	key, ok := cert.PrivateKey.(*ecdsa.PrivateKey)
	if !ok {
		return fmt.Errorf("unsupported key type %T", cert.PrivateKey)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}
	var chain []byte
	for _, c := range cert.Certificate {
		chain = append(chain, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c})...)
	}

	certPath, keyPath := m.certPaths()
	if err := writeFileAtomic(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})); err != nil {
		return err
	}
	return writeFileAtomic(certPath, chain)
}

// writeFileAtomic writes through a temp file so an interrupted write never
// leaves a torn cache entry.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func validateDNS01Value(value string) error {
	if len(value) != dns01ValueLength {
		return fmt.Errorf("dns01: challenge value has length %d, want %d", len(value), dns01ValueLength)
	}
	for _, c := range value {
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			return fmt.Errorf("dns01: invalid character %q in challenge value", c)
		}
	}
	return nil
}

func validateDNSRecordName(name string) error {
	n := strings.TrimSuffix(name, ".")
	if n == "" {
		return errors.New("dns01: empty record name")
	}
	if len(n) > 253 {
		return errors.New("dns01: record name longer than 253 characters")
	}
	for _, c := range n {
		if c < 0x20 || c == 0x7f {
			return errors.New("dns01: record name contains a control character")
		}
	}
	return nil
}

// validateDomainFormat applies RFC 1123 label rules. A leading "*." is
// allowed.
func validateDomainFormat(domain string) error {
	if len(domain) > 253 {
		return fmt.Errorf("domain %q longer than 253 characters", domain)
	}
	labels := strings.Split(strings.TrimPrefix(domain, "*."), ".")
	if len(labels) < 2 {
		return fmt.Errorf("domain %q needs at least two labels", domain)
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return fmt.Errorf("domain %q has a label of invalid length", domain)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("domain label %q starts or ends with a hyphen", label)
		}
		for _, c := range label {
			if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
				return fmt.Errorf("domain label %q contains %q", label, c)
			}
		}
	}
	return nil
}
