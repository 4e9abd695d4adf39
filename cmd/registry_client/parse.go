package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ruteri/weighted-membership-registry/interfaces"
)

// parseMembers parses address:weight pairs.
func parseMembers(values []string) ([]interfaces.Member, error) {
	members := make([]interfaces.Member, 0, len(values))
	for _, value := range values {
		rawAddr, rawWeight, found := strings.Cut(value, ":")
		if !found {
			return nil, fmt.Errorf("invalid member %q, expected address:weight", value)
		}

		addr, err := interfaces.NewAddressFromHex(rawAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid member %q: %w", value, err)
		}
		weight, err := strconv.ParseUint(rawWeight, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid member %q: %w", value, err)
		}

		members = append(members, interfaces.Member{Address: addr, Weight: weight})
	}
	return members, nil
}

func parseAddresses(values []string) ([]interfaces.Address, error) {
	addrs := make([]interfaces.Address, 0, len(values))
	for _, value := range values {
		addr, err := interfaces.NewAddressFromHex(value)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", value, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
