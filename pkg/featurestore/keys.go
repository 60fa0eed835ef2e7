package featurestore

// DefaultKeyPrefix namespaces keys when no prefix is configured.
const DefaultKeyPrefix = "featurekit"

// keyspace lays out the redis keys of one store:
//
//	<prefix>:feature:<uid>  JSON document of the feature
//	<prefix>:features       set of feature uids
//	<prefix>:group:<name>   set of member uids
//	<prefix>:groups         set of group names, possibly stale
type keyspace string

func (k keyspace) feature(uid string) string {
	return string(k) + ":feature:" + uid
}

func (k keyspace) features() string {
	return string(k) + ":features"
}

func (k keyspace) group(name string) string {
	return string(k) + ":group:" + name
}

func (k keyspace) groups() string {
	return string(k) + ":groups"
}
