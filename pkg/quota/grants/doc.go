// Package grants stores per-identity token allowances that raise the
// identity's daily token ceiling above the configured base limit.
//
// A grant is created out of band (a plan upgrade, a support credit, a
// one-off top-up) and carries an expiry. The ledger consults the grant
// store on every admission through the AllowanceSource interface; expired
// grants stop counting immediately and are physically removed by a
// scheduled sweep.
package grants
