// Package directory provides an in-memory goGuard.UserDirectory whose passwords are stored
// as argon2id PHC strings. It backs the example server, the CLI load generator and tests;
// production deployments implement goGuard.UserDirectory over their own user store.
package directory
