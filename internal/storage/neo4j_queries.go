package storage

// Cypher templates for the Neo4j GraphStore. Parameters are always passed
// separately; nothing is interpolated into the query text.

var schemaStatements = []string{
	`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
	`CREATE CONSTRAINT group_id_unique IF NOT EXISTS FOR (g:Group) REQUIRE g.id IS UNIQUE`,
	`CREATE CONSTRAINT join_request_id_unique IF NOT EXISTS FOR (r:JoinRequest) REQUIRE r.id IS UNIQUE`,
	`CREATE INDEX join_request_status IF NOT EXISTS FOR (r:JoinRequest) ON (r.status)`,
}

const (
	// The lock queries write a throwaway property so the node's write lock is
	// held until commit. Checks that follow run against serialised state.
	queryLockGroup = `
		MATCH (g:Group {id: $group})
		SET g._lock = true
		REMOVE g._lock
		RETURN count(g) AS locked`

	queryLockUsers = `
		UNWIND $ids AS id
		MATCH (u:User {id: id})
		SET u._lock = true
		REMOVE u._lock
		RETURN count(u) AS locked`

	queryGetUser = `
		MATCH (u:User {id: $id})
		RETURN u {.*} AS user`

	queryUpsertUser = `
		MERGE (u:User {id: $id})
		SET u.name = $name, u.username = $username, u.avatar_url = $avatar_url`

	queryHasRequest = `
		OPTIONAL MATCH (:User {id: $from})-[r:REQUESTED]->(:User {id: $to})
		RETURN count(r) > 0 AS found`

	queryCreateRequest = `
		MATCH (a:User {id: $from}), (b:User {id: $to})
		SET a._lock = true, b._lock = true
		REMOVE a._lock, b._lock
		WITH a, b
		WHERE NOT (a)-[:REQUESTED|FRIENDS_WITH]-(b)
		CREATE (a)-[r:REQUESTED {created_at: $at}]->(b)
		RETURN count(r) AS created`

	queryDeleteRequest = `
		MATCH (:User {id: $from})-[r:REQUESTED]->(:User {id: $to})
		DELETE r
		RETURN count(*) AS deleted`

	queryIncomingRequests = `
		MATCH (s:User)-[r:REQUESTED]->(me:User {id: $id})
		RETURN s {.*} AS from, me {.*} AS to, r.created_at AS created_at
		ORDER BY r.created_at DESC`

	queryOutgoingRequests = `
		MATCH (me:User {id: $id})-[r:REQUESTED]->(t:User)
		RETURN me {.*} AS from, t {.*} AS to, r.created_at AS created_at
		ORDER BY r.created_at DESC`

	queryAreFriends = `
		OPTIONAL MATCH (:User {id: $a})-[r:FRIENDS_WITH]->(:User {id: $b})
		RETURN count(r) > 0 AS found`

	queryCreateFriendship = `
		MATCH (a:User {id: $a}), (b:User {id: $b})
		MERGE (a)-[r1:FRIENDS_WITH]->(b) ON CREATE SET r1.since = $at
		MERGE (b)-[r2:FRIENDS_WITH]->(a) ON CREATE SET r2.since = $at`

	queryDeleteFriendship = `
		MATCH (:User {id: $a})-[r:FRIENDS_WITH]-(:User {id: $b})
		DELETE r
		RETURN count(*) AS deleted`

	queryListFriends = `
		MATCH (:User {id: $id})-[:FRIENDS_WITH]->(f:User)
		RETURN f {.*} AS user
		ORDER BY f.name, f.id`

	queryFriendIDs = `
		MATCH (:User {id: $id})-[:FRIENDS_WITH]->(f:User)
		RETURN f.id AS id`

	queryAsymmetricFriendships = `
		MATCH (a:User)-[:FRIENDS_WITH]->(b:User)
		WHERE NOT (b)-[:FRIENDS_WITH]->(a)
		RETURN a.id AS user_id, b.id AS other_id
		ORDER BY user_id, other_id`

	queryCreateGroup = `
		MATCH (u:User {id: $created_by})
		CREATE (g:Group {
			id: $id, name: $name, description: $description, category: $category,
			cover_image: $cover_image, is_public: $is_public, is_active: true,
			member_count: 1, created_by: $created_by, created_at: $created_at
		})
		CREATE (u)-[:MEMBER_OF {role: 'admin', joined_at: $created_at}]->(g)
		CREATE (u)-[:ADMIN_OF {since: $created_at}]->(g)
		RETURN g.id AS id`

	queryGetGroup = `
		MATCH (g:Group {id: $id})
		RETURN g {.*} AS group`

	queryUpdateGroup = `
		MATCH (g:Group {id: $id})
		SET g += $props
		RETURN g {.*} AS group`

	queryGetMembership = `
		MATCH (u:User {id: $user})-[m:MEMBER_OF]->(g:Group {id: $group})
		RETURN u {.*} AS user, m.role AS role, m.joined_at AS joined_at`

	queryIsAdmin = `
		OPTIONAL MATCH (:User {id: $user})-[a:ADMIN_OF]->(:Group {id: $group})
		RETURN count(a) > 0 AS found`

	queryAddMember = `
		MATCH (u:User {id: $user}), (g:Group {id: $group})
		SET g._lock = true
		REMOVE g._lock
		WITH u, g
		WHERE NOT (u)-[:MEMBER_OF]->(g)
		CREATE (u)-[:MEMBER_OF {role: $role, joined_at: $at}]->(g)
		SET g.member_count = coalesce(g.member_count, 0) + 1
		RETURN g.member_count AS member_count`

	queryRemoveMember = `
		MATCH (u:User {id: $user})-[m:MEMBER_OF]->(g:Group {id: $group})
		OPTIONAL MATCH (u)-[a:ADMIN_OF]->(g)
		DELETE m, a
		SET g.member_count = coalesce(g.member_count, 0) - 1
		RETURN g.member_count AS member_count`

	queryPromoteMember = `
		MATCH (u:User {id: $user})-[m:MEMBER_OF]->(g:Group {id: $group})
		SET m.role = 'admin'
		MERGE (u)-[a:ADMIN_OF]->(g) ON CREATE SET a.since = $at
		RETURN count(*) AS promoted`

	queryAdminIDs = `
		MATCH (u:User)-[:ADMIN_OF]->(:Group {id: $group})
		RETURN u.id AS id
		ORDER BY id`

	queryListMembers = `
		MATCH (u:User)-[m:MEMBER_OF]->(:Group {id: $group})
		RETURN u {.*} AS user, m.role AS role, m.joined_at AS joined_at
		ORDER BY m.joined_at, u.id`

	queryListUserGroups = `
		MATCH (:User {id: $user})-[:MEMBER_OF]->(g:Group)
		RETURN g {.*} AS group
		ORDER BY g.name, g.id`

	// All viewer flags come from one statement so they are read from the same snapshot.
	queryViewerFlags = `
		MATCH (g:Group {id: $group})
		OPTIONAL MATCH (v:User {id: $viewer})
		OPTIONAL MATCH (v)-[adm:ADMIN_OF]->(g)
		OPTIONAL MATCH (v)-[mem:MEMBER_OF]->(g)
		OPTIONAL MATCH (v)-[:SUBMITTED]->(jr:JoinRequest {status: 'pending'})-[:FOR_GROUP]->(g)
		OPTIONAL MATCH (v)-[:FRIENDS_WITH]->(f:User)-[:MEMBER_OF]->(g)
		RETURN coalesce(g.member_count, 0) AS member_count,
		       count(DISTINCT adm) > 0 AS is_admin,
		       count(DISTINCT mem) > 0 AS is_member,
		       count(DISTINCT jr) > 0 AS has_requested,
		       head(collect(DISTINCT jr.id)) AS request_id,
		       count(DISTINCT f) AS friend_count`

	queryMemberCounts = `
		MATCH (g:Group)
		OPTIONAL MATCH (u:User)-[:MEMBER_OF]->(g)
		RETURN g.id AS group_id, coalesce(g.member_count, 0) AS cached, count(u) AS actual
		ORDER BY group_id`

	querySetMemberCount = `
		MATCH (g:Group {id: $group})
		SET g.member_count = $count`

	queryCreateJoinRequest = `
		MATCH (u:User {id: $user}), (g:Group {id: $group})
		CREATE (u)-[:SUBMITTED]->(r:JoinRequest {id: $id, status: $status, created_at: $created_at})-[:FOR_GROUP]->(g)`

	queryGetJoinRequest = `
		MATCH (u:User)-[:SUBMITTED]->(r:JoinRequest {id: $id})-[:FOR_GROUP]->(g:Group)
		RETURN r {.*} AS request, u.id AS user_id, g.id AS group_id`

	queryFindPendingJoinRequest = `
		MATCH (u:User {id: $user})-[:SUBMITTED]->(r:JoinRequest {status: 'pending'})-[:FOR_GROUP]->(g:Group {id: $group})
		RETURN r {.*} AS request, u.id AS user_id, g.id AS group_id
		LIMIT 1`

	queryDeleteJoinRequest = `
		MATCH (r:JoinRequest {id: $id})
		DETACH DELETE r
		RETURN count(*) AS deleted`

	queryListJoinRequests = `
		MATCH (u:User)-[:SUBMITTED]->(r:JoinRequest {status: 'pending'})-[:FOR_GROUP]->(g:Group {id: $group})
		RETURN r {.*} AS request, u {.*} AS user, g.id AS group_id
		ORDER BY r.created_at`

	queryFriendOfFriend = `
		MATCH (me:User {id: $user})-[:FRIENDS_WITH]->(f:User)-[:FRIENDS_WITH]->(c:User)
		WHERE c <> me AND NOT (me)-[:FRIENDS_WITH]->(c)
		WITH c, count(DISTINCT f) AS mutual
		RETURN c {.*} AS user, mutual
		ORDER BY mutual DESC, c.name, c.id
		LIMIT $limit`

	queryRandomUsers = `
		MATCH (u:User)
		WHERE NOT u.id IN $exclude
		RETURN u {.*} AS user
		ORDER BY rand()
		LIMIT $limit`

	queryFriendGroups = `
		MATCH (me:User {id: $user})-[:FRIENDS_WITH]->(f:User)-[:MEMBER_OF]->(g:Group)
		WHERE coalesce(g.is_active, true) AND NOT (me)-[:MEMBER_OF]->(g)
		WITH g, count(DISTINCT f) AS friends
		RETURN g {.*} AS group, friends
		ORDER BY friends DESC, g.name, g.id
		LIMIT $limit`

	queryRandomGroups = `
		MATCH (g:Group)
		WHERE coalesce(g.is_active, true) AND NOT g.id IN $exclude
		RETURN g {.*} AS group
		ORDER BY rand()
		LIMIT $limit`
)
