// Package discovery resolves registry server endpoints from DNS SRV records.
package discovery

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// DefaultResolver is the local systemd-resolved stub.
const DefaultResolver = "127.0.0.53:53"

// ErrNoEndpoints is returned when the domain has no SRV records.
var ErrNoEndpoints = errors.New("no SRV records found")

// Endpoint is one SRV target.
type Endpoint struct {
	Host     string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// URL returns the http base URL of the endpoint.
func (e Endpoint) URL() string {
	return "http://" + net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// ResolveEndpoints queries resolverAddr for the SRV records of domain and
// returns their base URLs, lowest priority first and, within a priority,
// highest weight first.
func ResolveEndpoints(domain, resolverAddr string) ([]string, error) {
	endpoints, err := LookupSRV(domain, resolverAddr)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		urls = append(urls, e.URL())
	}
	return urls, nil
}

// LookupSRV returns the sorted SRV targets of domain.
func LookupSRV(domain, resolverAddr string) ([]Endpoint, error) {
	if resolverAddr == "" {
		resolverAddr = DefaultResolver
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeSRV)
	m.RecursionDesired = true

	c := new(dns.Client)
	in, _, err := c.Exchange(m, resolverAddr)
	if err != nil {
		return nil, fmt.Errorf("SRV query for %s failed: %w", domain, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("SRV query for %s failed: %s", domain, dns.RcodeToString[in.Rcode])
	}

	var endpoints []Endpoint
	for _, answer := range in.Answer {
		if srv, ok := answer.(*dns.SRV); ok {
			endpoints = append(endpoints, Endpoint{
				Host:     strings.TrimSuffix(srv.Target, "."),
				Port:     srv.Port,
				Priority: srv.Priority,
				Weight:   srv.Weight,
			})
		}
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoEndpoints, domain)
	}

	sort.SliceStable(endpoints, func(i, j int) bool {
		if endpoints[i].Priority != endpoints[j].Priority {
			return endpoints[i].Priority < endpoints[j].Priority
		}
		return endpoints[i].Weight > endpoints[j].Weight
	})
	return endpoints, nil
}
