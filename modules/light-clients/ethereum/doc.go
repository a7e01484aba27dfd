/*
Package ethereum implements the 08-wasm contract semantics of an IBC light
client tracking an Ethereum proof-of-stake chain.

Consensus is followed with the Altair sync protocol: every update carries a
sync committee aggregate signature over an attested beacon header, a
finality branch to the finalized header and an execution payload branch
binding the execution state root. IBC commitments are proven with
Merkle-Patricia storage proofs against the storage root of the IBC
contract, which is itself proven against the execution state root through
an account proof carried in each header.
*/
package ethereum
