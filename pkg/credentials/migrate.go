package credentials

import (
	"context"
	"encoding/json"

	"github.com/octocode/octocred/pkg/secrets"
)

// migrateToKeyring moves a file-stored credential into the native secret
// store, fire and forget: the read path that triggered it never waits. On
// success the file copy is deleted (removing the file and key entirely when
// the store empties); on failure the file copy stays and no retry happens
// until the next file read.
//
// The write runs under the hostname's mutation lock and re-validates first:
// if the file copy changed or vanished while the task was queued, or the
// keyring already has an entry, the migration is abandoned so a stale write
// cannot clobber a newer credential.
func (r *Resolver) migrateToKeyring(ctx context.Context, creds StoredCredentials) {
	r.migrationWG.Add(1)
	go func() {
		defer r.migrationWG.Done()
		// Detached from the caller's lifetime on purpose.
		ctx := context.WithoutCancel(ctx)

		mu := r.lockHost(creds.Hostname)
		mu.Lock()
		defer mu.Unlock()

		current := r.fileStore.Get(creds.Hostname)
		if current == nil || !current.UpdatedAt.Equal(creds.UpdatedAt) || current.Token.Token != creds.Token.Token {
			return
		}
		if _, err := r.secretStore.Get(ctx, KeyringService, creds.Hostname); err == nil {
			return
		}

		data, err := json.Marshal(creds)
		if err != nil {
			return
		}
		if err := r.secretStore.Store(ctx, KeyringService, creds.Hostname, string(data)); err != nil {
			r.logger.Debug().Str("hostname", creds.Hostname).Msg(secrets.Maskf("keychain migration failed: %v", err))
			return
		}
		if _, err := r.fileStore.Delete(creds.Hostname); err != nil {
			r.logger.Warn().Str("hostname", creds.Hostname).Msg(secrets.Maskf("migrated to keychain but failed to remove file copy: %v", err))
			return
		}
		r.logger.Debug().Str("hostname", creds.Hostname).Msg("migrated credentials from file to keychain")
	}()
}
