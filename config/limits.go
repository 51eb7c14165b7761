// Package config holds the registry limits and the YAML deployment file.
package config

import (
	"github.com/ruteri/identity-registry/interfaces"
)

const (
	DefaultAddressSize     = 128
	DefaultNicknameLength  = 16
	DefaultChainNameLength = 32
	DefaultRPCURLLength    = 64
)

// Limits bounds the size of every stored byte string. Lengths are counted
// in bytes, not runes.
type Limits struct {
	AddressSize     int `yaml:"address_size"`
	NicknameLength  int `yaml:"nickname_length"`
	ChainNameLength int `yaml:"chain_name_length"`
	RPCURLLength    int `yaml:"rpc_url_length"`
}

func DefaultLimits() Limits {
	return Limits{
		AddressSize:     DefaultAddressSize,
		NicknameLength:  DefaultNicknameLength,
		ChainNameLength: DefaultChainNameLength,
		RPCURLLength:    DefaultRPCURLLength,
	}
}

func (l Limits) CheckAddress(address interfaces.ChainAddress) error {
	if len(address) > l.AddressSize {
		return interfaces.ErrAddressSizeExceeded
	}
	return nil
}

func (l Limits) CheckNickname(nickname *string) error {
	if nickname != nil && len(*nickname) > l.NicknameLength {
		return interfaces.ErrNickNameTooLong
	}
	return nil
}

// CheckChainInfo validates a full chain entry. The name is checked before
// the RPC urls.
func (l Limits) CheckChainInfo(info interfaces.ChainInfo) error {
	if len(info.Name) > l.ChainNameLength {
		return interfaces.ErrChainNameTooLong
	}
	for _, url := range info.RPCURLs {
		if len(url) > l.RPCURLLength {
			return interfaces.ErrChainRpcUrlTooLong
		}
	}
	return nil
}

func (l Limits) CheckChainUpdate(update interfaces.ChainUpdate) error {
	if update.Name != nil && len(*update.Name) > l.ChainNameLength {
		return interfaces.ErrChainNameTooLong
	}
	if update.RPCURL != nil && len(*update.RPCURL) > l.RPCURLLength {
		return interfaces.ErrChainRpcUrlTooLong
	}
	return nil
}

// merge overrides every positive field of src.
func (l *Limits) merge(src Limits) {
	if src.AddressSize > 0 {
		l.AddressSize = src.AddressSize
	}
	if src.NicknameLength > 0 {
		l.NicknameLength = src.NicknameLength
	}
	if src.ChainNameLength > 0 {
		l.ChainNameLength = src.ChainNameLength
	}
	if src.RPCURLLength > 0 {
		l.RPCURLLength = src.RPCURLLength
	}
}
