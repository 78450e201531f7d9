package clientauth

import "os"

// SeedDevClient registers a development client when
// CUSTODIA_DEV_CLIENT_SECRET is set. Production deployments resolve clients
// from the ecosystem register instead of seeding.
func SeedDevClient(store *MemoryClientStore) (*Client, error) {
	secret := os.Getenv("CUSTODIA_DEV_CLIENT_SECRET")
	if secret == "" {
		return nil, nil
	}
	hash, err := HashSecret(secret)
	if err != nil {
		return nil, err
	}
	client := &Client{
		ClientID:            "dev-client",
		SecretHash:          hash,
		SoftwareProductID:   "dev-software-product",
		SectorIdentifierURI: "http://localhost/sector",
		AllowedGrantTypes:   []string{"authorization_code", "refresh_token", "cdr_arrangement"},
		RedirectURIs:        []string{"http://localhost:3000/callback"},
		Active:              true,
	}
	if err := store.Register(client); err != nil {
		return nil, err
	}
	return client, nil
}
