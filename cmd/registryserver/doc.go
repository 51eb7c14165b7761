// Command registryserver serves the identity registry, chain directory and
// address book over HTTP.
//
// The chain directory is seeded from the config file's genesis chains. When
// checkpoint storage is configured, the latest checkpoint is restored on boot
// and replaces that seed, state is saved every checkpoint interval and once
// more after the server has drained on SIGINT/SIGTERM.
//
// Example:
//
//	registryserver --config registry.yaml \
//	  --checkpoint-storage file:///var/lib/registry \
//	  --checkpoint-storage "s3://registry-state/prod?region=eu-west-1"
//
// A config file looks like:
//
//	admin: "0x00000000000000000000000000000000000000ad"
//	limits:
//	  address_size: 128
//	  nickname_length: 16
//	chains:
//	  - name: Polkadot
//	    account_type: AccountId32
//	    ss58_prefix: 0
//	    rpc_urls: ["wss://rpc.polkadot.io"]
//	checkpoint:
//	  interval: 5m
//	  head_file: /var/lib/registry/checkpoint.head
package main
