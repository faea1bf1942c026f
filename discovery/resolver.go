package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// DefaultDNSServer is the systemd-resolved stub listener, the resolver most
// hosts point at.
const DefaultDNSServer = "127.0.0.53:53"

// Endpoints holds the resolved collaborator endpoints of one deployment.
type Endpoints struct {
	// ProofBackends are host:port targets of proof generation backends.
	ProofBackends []string

	// BlobGateways are host:port targets of blob store gateways.
	BlobGateways []string
}

// ProofBackendURL returns the base URL of the first discovered proof
// backend, or an empty string when the zone publishes none. SRV answers
// carry no scheme; the dev proof backend serves plain HTTP.
func (e *Endpoints) ProofBackendURL() string {
	if len(e.ProofBackends) == 0 {
		return ""
	}
	return "http://" + e.ProofBackends[0]
}

// BlobGatewayURIs returns blob store location URIs for the discovered
// gateways. Gateways publish their IPFS API endpoint.
func (e *Endpoints) BlobGatewayURIs() []string {
	uris := make([]string, 0, len(e.BlobGateways))
	for _, gw := range e.BlobGateways {
		uris = append(uris, "ipfs://"+gw+"/")
	}
	return uris
}

// Resolver discovers collaborator endpoints through DNS SRV records. Each
// collaborator publishes under a conventional service label
// (_vault-prover._tcp.<zone>, _vault-blobs._tcp.<zone>).
type Resolver struct {
	server string
	client *dns.Client
	log    *slog.Logger
}

// NewResolver creates a resolver querying the given DNS server; an empty
// server falls back to DefaultDNSServer.
func NewResolver(server string, log *slog.Logger) *Resolver {
	if server == "" {
		server = DefaultDNSServer
	}
	return &Resolver{
		server: server,
		client: new(dns.Client),
		log:    log,
	}
}

// ResolveEndpoints resolves both collaborator services under the zone.
// Resolution failures of one service do not fail the other; an Endpoints
// with both lists empty and a nil error means the zone publishes nothing.
func (r *Resolver) ResolveEndpoints(zone string) (*Endpoints, error) {
	eps := &Endpoints{}

	provers, err := r.ResolveService("_vault-prover._tcp." + zone)
	if err != nil {
		r.log.Warn("Proof backend discovery failed", slog.String("zone", zone), "err", err)
	} else {
		eps.ProofBackends = provers
	}

	blobs, err := r.ResolveService("_vault-blobs._tcp." + zone)
	if err != nil {
		r.log.Warn("Blob gateway discovery failed", slog.String("zone", zone), "err", err)
	} else {
		eps.BlobGateways = blobs
	}

	return eps, nil
}

// ResolveService resolves a single SRV name to host:port targets.
func (r *Resolver) ResolveService(name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.Id = dns.Id()
	msg.RecursionDesired = true
	msg.Question = []dns.Question{{
		Name:   dns.Fqdn(name),
		Qtype:  dns.TypeSRV,
		Qclass: dns.ClassINET,
	}}

	in, _, err := r.client.Exchange(msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("SRV lookup for %s failed: %w", name, err)
	}

	return srvTargets(in), nil
}

// srvTargets extracts host:port targets from an SRV answer section.
func srvTargets(in *dns.Msg) []string {
	targets := make([]string, 0, len(in.Answer))
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			host := strings.TrimSuffix(srv.Target, ".")
			targets = append(targets, net.JoinHostPort(host, strconv.Itoa(int(srv.Port))))
		}
	}
	return targets
}
