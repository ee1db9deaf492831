package protocols

// Addresses holds the module publisher address of each protocol
type Addresses struct {
	Joule   string
	Echelon string
	Aries   string
	Amnis   string
	Thala   string
	Echo    string
}

// MainnetAddresses are the Aptos mainnet deployments
func MainnetAddresses() Addresses {
	return Addresses{
		Joule:   "0x2fe576faa841347a9b1b32c869685deb75a15e3f62dfe37cbd6d52cc403a16f2",
		Echelon: "0xc6bc659f1649553c1a3fa05d9727433dc03843baac29473c817d06d39e7621ba",
		Aries:   "0x9770fa9c725cbd97eb50b2be5f7416efdfd1f1554beb0750d4dae4c64e860da3",
		Amnis:   "0x111ae3e5bc816a5e63c2da97d0aa3886519e0cd5e4b046659fa35796bd11542a",
		Thala:   "0xfaf4e633ae9eb31366c9ca24214231760926576c7b625313b3688b5e900731f6",
		Echo:    "0xa0281660ff6ca6c1b68b55fcb9b213c2276f90ad007ad27fd003cf2f3478e96e",
	}
}

// Default builds a registry with every supported protocol
func Default(addrs Addresses) *Registry {
	r := NewRegistry()
	registerJoule(r, addrs.Joule)
	registerEchelon(r, addrs.Echelon)
	registerAries(r, addrs.Aries)
	registerStaking(r, addrs)
	return r
}
